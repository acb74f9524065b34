package upstream

import (
	"net/http"
	"sort"
	"strings"
)

// Credentials are the caller-supplied login data. Each agency uses a subset;
// they live for one inbound request and are never stored.
type Credentials struct {
	CNPJ     string
	CPF      string
	Password string
	UnitCode string
}

// Empty reports whether no login data was supplied
func (c Credentials) Empty() bool {
	return c.CNPJ == "" && c.CPF == "" && c.Password == ""
}

// Session is the handle produced by an authentication strategy and replayed
// on the follow-up query. Implementations are BearerSession, CookieSession
// and EmbeddedSession.
type Session interface {
	// Apply writes the handle into the outbound request headers.
	Apply(h http.Header)
	// Kind names the handle variant for logs.
	Kind() string
}

// BearerSession is the token obtained by a bearer-token exchange.
type BearerSession struct {
	Token string
	// Raw means Token already carries its scheme ("Bearer xyz") and is sent verbatim.
	Raw bool
	// SecondaryKey is sent under SecondaryHeader when both are set (FEAM chave_feam).
	SecondaryKey    string
	SecondaryHeader string
}

func (s BearerSession) Apply(h http.Header) {
	if s.Raw {
		h.Set("Authorization", s.Token)
	} else {
		h.Set("Authorization", "Bearer "+s.Token)
	}
	if s.SecondaryHeader != "" && s.SecondaryKey != "" {
		h.Set(s.SecondaryHeader, s.SecondaryKey)
	}
}

func (BearerSession) Kind() string { return "bearer" }

// CookieSession is the full cookie set captured at login. Every captured
// cookie is replayed; the portals reject sessions missing companion cookies.
type CookieSession struct {
	Cookies map[string]string
}

// NewCookieSession copies cookies into a new session
func NewCookieSession(cookies map[string]string) CookieSession {
	c := make(map[string]string, len(cookies))
	for k, v := range cookies {
		c[k] = v
	}
	return CookieSession{Cookies: c}
}

// Has reports whether the named cookie was captured with a non-empty value
func (s CookieSession) Has(name string) bool {
	return s.Cookies[name] != ""
}

// Names returns the captured cookie names in stable order
func (s CookieSession) Names() []string {
	names := make([]string, 0, len(s.Cookies))
	for k := range s.Cookies {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Header renders the Cookie header value
func (s CookieSession) Header() string {
	names := s.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+s.Cookies[name])
	}
	return strings.Join(parts, "; ")
}

func (s CookieSession) Apply(h http.Header) {
	if len(s.Cookies) == 0 {
		return
	}
	h.Set("Cookie", s.Header())
}

func (CookieSession) Kind() string { return "cookie" }

// EmbeddedSession is used by portals that take the credentials inside the
// query itself and have no separate login round trip.
type EmbeddedSession struct{}

func (EmbeddedSession) Apply(http.Header) {}

func (EmbeddedSession) Kind() string { return "embedded" }
