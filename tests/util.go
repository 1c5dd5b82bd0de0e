package testutil

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core"
)

var tokenKey = []byte("school-events-test-key")

// Token signs claims with HS256. The console never verifies signatures, only the fake backend does.
func Token(t *testing.T, claims jwt.MapClaims) string {
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tokenKey)
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	return token
}

// Logger returns a core.Logger writing to stderr. Fatal panics instead of exiting.
func Logger() core.Logger {
	return testLogger{std: log.New(os.Stderr, "TEST : ", log.Lmicroseconds|log.Lshortfile)}
}

type testLogger struct {
	std *log.Logger
}

func (l testLogger) print(level, msg string, args []interface{}) {
	if len(args) == 0 {
		l.std.Printf("%s %s", level, msg)
		return
	}
	l.std.Printf("%s %s %+v", level, msg, args)
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }

func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.print("FATAL", msg, args)
	panic(msg)
}
