package routes

import (
	"strings"

	"github.com/NycolasFelipe/uninter-gestao-eventos/core/session"
)

const (
	RootPath    = "/"
	LoginPath   = "/login"
	LandingPath = "/home"
)

// Route is a view pattern; ":name" segments match any single segment.
type Route struct {
	Pattern string
	Title   string
}

var (
	Public = []Route{
		{Pattern: RootPath, Title: "Login"},
		{Pattern: LoginPath, Title: "Login"},
	}

	Private = []Route{
		{Pattern: LandingPath, Title: "Home"},
		{Pattern: "/manage/users", Title: "Manage users"},
		{Pattern: "/manage/schools", Title: "Manage schools"},
		{Pattern: "/manage/venues", Title: "Manage venues"},
		{Pattern: "/manage/roles", Title: "Manage roles"},
		{Pattern: "/manage/events", Title: "Manage events"},
		{Pattern: "/event/review", Title: "Event reviews"},
		{Pattern: "/event/:id", Title: "Event"},
		{Pattern: "/manage/subscriptions", Title: "My subscriptions"},
	}
)

// Match reports whether path fits the pattern.
func (r Route) Match(path string) bool {
	want := split(r.Pattern)
	got := split(path)
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, ":") {
			if got[i] == "" {
				return false
			}
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Lookup finds the Route matching path. Static patterns win over parametrized ones.
func Lookup(path string) (route Route, private, ok bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, r := range Public {
		if r.Match(path) {
			return r, false, true
		}
	}
	var param *Route
	for i, r := range Private {
		if !r.Match(path) {
			continue
		}
		if !strings.Contains(r.Pattern, ":") {
			return r, true, true
		}
		if param == nil {
			param = &Private[i]
		}
	}
	if param != nil {
		return *param, true, true
	}
	return Route{}, false, false
}

// Outcome is what the Guard decided for a navigation.
type Outcome int

const (
	// Loading: render a loading indicator; nothing is decided before bootstrap.
	Loading Outcome = iota
	Allow
	Redirect
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Loading:
		return "loading"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	case NotFound:
		return "not found"
	default:
		return "unknown"
	}
}

type Decision struct {
	Outcome Outcome
	Route   Route  // for Allow
	To      string // for Redirect
}

// Guard chooses which view set is reachable for a session State.
type Guard struct{}

// Resolve decides a navigation to path:
//   - Loading while the session bootstraps
//   - Allow for public routes, and private ones once authenticated
//   - Redirect to the login view for anything else while anonymous
//   - NotFound for unknown paths while authenticated
func (Guard) Resolve(state session.State, path string) Decision {
	if state.Loading {
		return Decision{Outcome: Loading}
	}
	route, private, ok := Lookup(path)
	switch {
	case ok && !private:
		return Decision{Outcome: Allow, Route: route}
	case !state.Authenticated:
		return Decision{Outcome: Redirect, To: LoginPath}
	case ok:
		return Decision{Outcome: Allow, Route: route}
	default:
		return Decision{Outcome: NotFound}
	}
}
