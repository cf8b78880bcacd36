// Package guard decides whether a protected page may render for the current
// session, or where the browser has to be sent instead.
//
// A Guard lives for one mount (one request). It starts in Checking, moves to
// Authorized or Redirecting the first time it is evaluated after the session
// store has hydrated, and from then on never asks for another navigation.
package guard

import (
	"net/url"
	"strings"
)

type State int

const (
	Checking State = iota
	Authorized
	Redirecting
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case Redirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// RedirectParam is the login page query parameter carrying the original path.
const RedirectParam = "redirectTo"

// Routes are the role specific pages the guard navigates to.
type Routes struct {
	Login          string   // login page, also matched as a prefix
	LoginAliases   []string // other paths that count as the login page
	SignupComplete string   // the only page a temporary user may see; empty disables the rule
}

// Input is everything the guard reads. It never reads or writes the session itself.
type Input struct {
	Hydrated      bool
	Authenticated bool
	TemporaryUser bool
	Path          string // original request path including any query string
}

// Decision is the outcome of one evaluation. Navigate is true at most once per Guard.
type Decision struct {
	State         State
	Navigate      bool
	Target        string
	LoginRequired bool // surface the one-time "login required" notice
}

type Guard struct {
	routes   Routes
	checked  bool
	decision Decision
}

func New(routes Routes) *Guard {
	return &Guard{
		routes:   routes,
		decision: Decision{State: Checking},
	}
}

func (g *Guard) State() State {
	return g.decision.State
}

// Evaluate advances the state machine. Before hydration it always reports
// Checking. The first evaluation after hydration decides; later calls repeat
// that decision's state without navigating again.
func (g *Guard) Evaluate(in Input) Decision {
	if g.checked {
		return Decision{State: g.decision.State, Target: g.decision.Target}
	}
	if !in.Hydrated {
		return g.decision
	}
	g.checked = true
	g.decision = g.decide(in)
	return g.decision
}

func (g *Guard) decide(in Input) Decision {
	path := in.Path
	if path == "" {
		path = "/"
	}

	if g.IsLoginPath(path) {
		return Decision{State: Authorized}
	}

	if !in.Authenticated {
		return Decision{
			State:         Redirecting,
			Navigate:      true,
			Target:        LoginURL(g.routes.Login, path),
			LoginRequired: true,
		}
	}

	if in.TemporaryUser && g.routes.SignupComplete != "" && !matchesRoute(path, g.routes.SignupComplete) {
		return Decision{
			State:    Redirecting,
			Navigate: true,
			Target:   g.routes.SignupComplete,
		}
	}

	return Decision{State: Authorized}
}

// IsLoginPath reports whether path is the login page (exact or prefix match).
func (g *Guard) IsLoginPath(path string) bool {
	if matchesRoute(path, g.routes.Login) {
		return true
	}
	for _, alias := range g.routes.LoginAliases {
		if matchesRoute(path, alias) {
			return true
		}
	}
	return false
}

// LoginURL builds "<login>?redirectTo=<original path>".
func LoginURL(login, originalPath string) string {
	return login + "?" + RedirectParam + "=" + url.QueryEscape(originalPath)
}

func matchesRoute(path, route string) bool {
	if route == "" {
		return false
	}
	p := stripQuery(path)
	if p == route {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(route, "/")+"/")
}

func stripQuery(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}

// IsLocalPath reports whether p is safe to redirect to: an absolute path on
// this site, not a scheme-relative or absolute URL.
func IsLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}
