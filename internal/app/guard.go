package app

import "invoicegen/internal/domain"

// GuardDecision is the outcome of checking a session against a protected route.
type GuardDecision int

const (
	// GuardAllow renders the protected page.
	GuardAllow GuardDecision = iota
	// GuardLoading renders a placeholder while the session is restored.
	GuardLoading
	// GuardRedirect sends the client to the login page.
	GuardRedirect
)

func (d GuardDecision) String() string {
	switch d {
	case GuardAllow:
		return "allow"
	case GuardLoading:
		return "loading"
	case GuardRedirect:
		return "redirect"
	}
	return "unknown"
}

// Guard decides whether a session may see a protected route.
func Guard(s domain.Session) GuardDecision {
	switch {
	case s.Loading:
		return GuardLoading
	case !s.Authenticated():
		return GuardRedirect
	default:
		return GuardAllow
	}
}
