package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DelegatedLogin asks the browser-automation service to log in on a real
// browser and hand back the cookies it captured. It is the slow path and
// runs under the longer browser-login timeout.
type DelegatedLogin struct {
	Agency string
	// ServiceURL is the automation host, e.g. http://loginhelper:8090.
	ServiceURL string
	// Endpoint is the flow name; the call goes to <ServiceURL>/<Endpoint>-login.
	Endpoint      string
	SessionCookie string
	Timeout       time.Duration

	transport *Transport
	logger    *logrus.Logger
}

// CookieList decodes the automation service cookie payload, which is either
// a list of {name, value} objects or a flat {name: value} object.
type CookieList map[string]string

func (c *CookieList) UnmarshalJSON(data []byte) error {
	out := CookieList{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = out
		return nil
	}
	if data[0] == '[' {
		var list []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		}
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		for _, ck := range list {
			if ck.Name != "" {
				out[ck.Name] = ck.Value
			}
		}
		*c = out
		return nil
	}
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	for k, v := range flat {
		out[k] = v
	}
	*c = out
	return nil
}

// automationReply is the automation service response
type automationReply struct {
	Codigo  json.Number     `json:"codigo"`
	Cookies CookieList      `json:"cookies"`
	Erro    json.RawMessage `json:"erro"`
}

// LoginURL builds the automation call for creds
func (d *DelegatedLogin) LoginURL(creds Credentials) string {
	q := url.Values{}
	q.Set("cnpj", creds.CNPJ)
	q.Set("senha", creds.Password)
	q.Set("cpf", creds.CPF)
	q.Set("unidadeCodigo", creds.UnitCode)
	return fmt.Sprintf("%s/%s-login?%s", strings.TrimRight(d.ServiceURL, "/"), d.Endpoint, q.Encode())
}

// Authenticate delegates the login and returns a CookieSession
func (d *DelegatedLogin) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	// the browser flow types the CPF into the login form
	if creds.CNPJ == "" || creds.CPF == "" || creds.Password == "" {
		return nil, InvalidRequest(d.Agency, opAuthenticate, "cnpj, cpf and senha are required")
	}

	start := time.Now()
	resp, err := d.transport.Do(ctx, &Request{
		Agency:  d.Agency,
		Op:      opAuthenticate,
		Method:  http.MethodPost,
		URL:     d.LoginURL(creds),
		LogURL:  fmt.Sprintf("%s/%s-login", strings.TrimRight(d.ServiceURL, "/"), d.Endpoint),
		Timeout: d.Timeout,
		NoRetry: true,
	})
	if err != nil {
		return nil, err
	}

	var reply automationReply
	decodeErr := json.Unmarshal(resp.Body, &reply)
	if decodeErr == nil && len(reply.Erro) > 0 && !bytes.Equal(reply.Erro, []byte("null")) {
		return nil, rejected(d.Agency, opAuthenticate, resp.Status, "automation service reported a login error", resp.Body)
	}
	if resp.Status != http.StatusOK {
		return nil, unavailable(d.Agency, opAuthenticate, resp.Status, "automation service returned non-200", resp.Body, nil)
	}
	if decodeErr != nil {
		return nil, unavailable(d.Agency, opAuthenticate, resp.Status, "automation service returned an unreadable body", resp.Body, decodeErr)
	}

	session := NewCookieSession(reply.Cookies)
	name := d.SessionCookie
	if name == "" {
		name = DefaultSessionCookie
	}
	if !session.Has(name) {
		return nil, rejected(d.Agency, opAuthenticate, resp.Status, fmt.Sprintf("captured cookies lack %s", name), resp.Body)
	}

	d.logger.WithFields(logrus.Fields{
		"agency":   d.Agency,
		"cookies":  session.Names(),
		"duration": time.Since(start),
	}).Info("Delegated browser login completed")

	return session, nil
}
