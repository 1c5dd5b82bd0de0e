package session

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UserClaims represents the identity fields carried in the bearer token payload.
// They are for display only: the backend re-validates the token on every request.
// Registered claims other than exp & iat (sub, aud, ...) are ignored whatever their type.
type UserClaims struct {
	ID        int64       `json:"id,omitempty"`
	Name      string      `json:"name,omitempty"`
	FirstName string      `json:"firstName,omitempty"`
	LastName  string      `json:"lastName,omitempty"`
	Email     string      `json:"email,omitempty"`
	Role      Reference   `json:"role,omitempty"`
	School    Reference   `json:"school,omitempty"`
	ExpiresAt NumericDate `json:"exp,omitempty"`
	IssuedAt  NumericDate `json:"iat,omitempty"`
}

// Valid never fails: expiry is the backend's call.
func (c UserClaims) Valid() error { return nil }

// DisplayName returns the name to greet the user with.
func (c UserClaims) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if full := strings.TrimSpace(c.FirstName + " " + c.LastName); full != "" {
		return full
	}
	return c.Email
}

// Reference points to a related record (role, school) as the backend embeds it in the token:
// a bare name, a bare id, or an object holding either.
type Reference struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (r Reference) IsZero() bool {
	return r.ID == 0 && r.Name == ""
}

func (r Reference) String() string {
	if r.Name != "" {
		return r.Name
	}
	if r.ID != 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return ""
}

func (r *Reference) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = Reference{}
		return nil
	case data[0] == '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*r = Reference{Name: name}
		return nil
	case data[0] == '{':
		var obj struct {
			ID         int64  `json:"id"`
			Name       string `json:"name"`
			RoleName   string `json:"roleName"`
			SchoolName string `json:"schoolName"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.ID = obj.ID
		switch {
		case obj.Name != "":
			r.Name = obj.Name
		case obj.RoleName != "":
			r.Name = obj.RoleName
		default:
			r.Name = obj.SchoolName
		}
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Reference{ID: id}
		return nil
	}
}

func (r Reference) MarshalJSON() ([]byte, error) {
	switch {
	case r.IsZero():
		return []byte("null"), nil
	case r.ID == 0:
		return json.Marshal(r.Name)
	case r.Name == "":
		return json.Marshal(r.ID)
	}
	type plain Reference
	return json.Marshal(plain(r))
}

// NumericDate is a JWT time in seconds since the epoch. Fractions are dropped;
// numeric strings are accepted too.
type NumericDate int64

func (d *NumericDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*d = NumericDate(math.Trunc(f))
	return nil
}
