package upstream

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies every failure an adapter can surface.
type Kind int

const (
	KindUpstreamUnavailable Kind = iota + 1
	KindAuthenticationRejected
	KindSessionInvalid
	KindUpstreamTimeout
	KindInvalidRequest
)

// maxDiagnosticBody bounds the upstream body copied into errors.
const maxDiagnosticBody = 4096

// Code returns the stable error code exposed to callers
func (k Kind) Code() string {
	switch k {
	case KindUpstreamUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case KindAuthenticationRejected:
		return "AUTHENTICATION_REJECTED"
	case KindSessionInvalid:
		return "SESSION_INVALID"
	case KindUpstreamTimeout:
		return "UPSTREAM_TIMEOUT"
	case KindInvalidRequest:
		return "INVALID_REQUEST"
	default:
		return "INTERNAL_ERROR"
	}
}

// HTTPStatus maps the kind to the status returned to the inbound caller
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUpstreamUnavailable:
		return http.StatusBadGateway
	case KindAuthenticationRejected, KindSessionInvalid:
		return http.StatusUnauthorized
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	return strings.ToLower(strings.ReplaceAll(k.Code(), "_", " "))
}

// MarshalText renders the kind as its code
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Code()), nil
}

// Error is the typed failure returned by transports, strategies and adapters.
type Error struct {
	Kind   Kind
	Agency string
	Op     string
	Status int
	Detail string
	// Body holds a prefix of the raw upstream payload for triage.
	Body string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Agency != "" {
		b.WriteString(strings.ToLower(e.Agency))
		b.WriteString(" ")
	}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, if it carries one
func KindOf(err error) (Kind, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func newError(kind Kind, agency, op string, status int, detail string, body []byte, err error) *Error {
	return &Error{
		Kind:   kind,
		Agency: agency,
		Op:     op,
		Status: status,
		Detail: detail,
		Body:   truncate(string(body), maxDiagnosticBody),
		Err:    err,
	}
}

func unavailable(agency, op string, status int, detail string, body []byte, err error) *Error {
	return newError(KindUpstreamUnavailable, agency, op, status, detail, body, err)
}

func rejected(agency, op string, status int, detail string, body []byte) *Error {
	return newError(KindAuthenticationRejected, agency, op, status, detail, body, nil)
}

func sessionInvalid(agency, op string, status int, detail string, body []byte) *Error {
	return newError(KindSessionInvalid, agency, op, status, detail, body, nil)
}

func timedOut(agency, op string, err error) *Error {
	return newError(KindUpstreamTimeout, agency, op, 0, "no response within budget", nil, err)
}

// InvalidRequest builds a client-class error raised before any network call
func InvalidRequest(agency, op, detail string) *Error {
	return newError(KindInvalidRequest, agency, op, 0, detail, nil, nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// keep the cut on a rune boundary
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
