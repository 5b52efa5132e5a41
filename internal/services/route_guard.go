package services

import (
	"net/url"
	"strings"
)

const (
	LoginRoute       = "/login"
	RegisterRoute    = "/register"
	DefaultLandRoute = "/scan"
)

type DecisionKind string

const (
	DecisionPlaceholder DecisionKind = "placeholder"
	DecisionRedirect    DecisionKind = "redirect"
	DecisionRender      DecisionKind = "render"
)

// Decision is what a protected view should do for the current auth state.
type Decision struct {
	Kind DecisionKind
	// RedirectTo is set for DecisionRedirect.
	RedirectTo string
	// From is the originally requested location, kept for the post-login return.
	From string
}

// Guard maps an auth state to a render decision for the requested location.
// It is a pure function.
func Guard(state AuthState, requested string) Decision {
	switch state {
	case StateAuthenticated:
		return Decision{Kind: DecisionRender}
	case StateUnauthenticated:
		return Decision{
			Kind:       DecisionRedirect,
			RedirectTo: LoginRoute + "?from=" + url.QueryEscape(requested),
			From:       requested,
		}
	default:
		return Decision{Kind: DecisionPlaceholder}
	}
}

// ReturnPath picks where to go after a successful login: the originally
// requested location when it is a local page, the scan page otherwise.
func ReturnPath(from string) string {
	if from == "" || from[0] != '/' {
		return DefaultLandRoute
	}
	// Browsers read "/\" like "//", a protocol-relative URL.
	if len(from) > 1 && (from[1] == '/' || from[1] == '\\') {
		return DefaultLandRoute
	}
	decoded, err := url.PathUnescape(from)
	if err != nil || strings.ContainsAny(decoded, "\\\r\n\t") {
		return DefaultLandRoute
	}
	u, err := url.Parse(from)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return DefaultLandRoute
	}
	if u.Path == LoginRoute || u.Path == RegisterRoute {
		return DefaultLandRoute
	}
	return from
}
