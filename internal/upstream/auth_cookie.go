package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/sirupsen/logrus"
)

// DefaultSessionCookie is the servlet session cookie every legacy portal sets.
const DefaultSessionCookie = "JSESSIONID"

// CookieExchange posts form-encoded credentials to a legacy controller and
// keeps every cookie the portal sets (session plus companions such as WAF
// tokens) as the session handle.
type CookieExchange struct {
	Agency        string
	URL           string
	SessionCookie string
	// Form overrides the default login form.
	Form func(Credentials) url.Values
	// Accept is an optional body predicate checked before the cookie check.
	// Agencies without one are judged purely on the session cookie.
	Accept func(body []byte) bool

	transport *Transport
	logger    *logrus.Logger
}

// LoginForm is the form shared by the legacy MTR controllers
func LoginForm(creds Credentials) url.Values {
	form := url.Values{}
	form.Set("acao", "autenticaUsuario")
	form.Set("cnpj", creds.CNPJ)
	form.Set("senha", creds.Password)
	form.Set("cpf", creds.CPF)
	if creds.UnitCode != "" {
		form.Set("unidadeCodigo", creds.UnitCode)
	}
	form.Set("tipoPessoaSociedade", "J")
	return form
}

// Authenticate performs the login and returns a CookieSession
func (c *CookieExchange) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	if creds.CNPJ == "" || creds.Password == "" {
		return nil, InvalidRequest(c.Agency, opAuthenticate, "cnpj and senha are required")
	}

	loginURL, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid login url for %s: %w", c.Agency, err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	form := LoginForm
	if c.Form != nil {
		form = c.Form
	}

	resp, err := c.transport.Do(ctx, &Request{
		Agency:      c.Agency,
		Op:          opAuthenticate,
		Method:      http.MethodPost,
		URL:         c.URL,
		Body:        []byte(form(creds).Encode()),
		ContentType: "application/x-www-form-urlencoded",
		Jar:         jar,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, unavailable(c.Agency, opAuthenticate, resp.Status, "login controller returned non-200", resp.Body, nil)
	}
	if c.Accept != nil && !c.Accept(resp.Body) {
		return nil, rejected(c.Agency, opAuthenticate, resp.Status, "login response lacks success marker", resp.Body)
	}

	session := NewCookieSession(collectCookies(jar, loginURL, resp.URL))
	name := c.sessionCookie()
	if !session.Has(name) {
		return nil, rejected(c.Agency, opAuthenticate, resp.Status, fmt.Sprintf("no %s cookie after login", name), resp.Body)
	}

	c.logger.WithFields(logrus.Fields{
		"agency":  c.Agency,
		"cookies": session.Names(),
	}).Debug("Session cookies captured")

	return session, nil
}

func (c *CookieExchange) sessionCookie() string {
	if c.SessionCookie != "" {
		return c.SessionCookie
	}
	return DefaultSessionCookie
}

// collectCookies gathers the cookies the jar would send back to any of urls
func collectCookies(jar http.CookieJar, urls ...*url.URL) map[string]string {
	out := map[string]string{}
	for _, u := range urls {
		if u == nil {
			continue
		}
		for _, ck := range jar.Cookies(u) {
			out[ck.Name] = ck.Value
		}
	}
	return out
}

// sucessoFlag accepts bodies of the form {"sucesso":"s"} (FEPAM)
func sucessoFlag(body []byte) bool {
	m, ok := decodeObject(body)
	if !ok {
		return false
	}
	v, ok := stringField(m, "sucesso")
	return ok && (v == "s" || v == "S")
}
