package browserlogin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/logger"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoginer struct {
	name    string
	creds   upstream.Credentials
	cookies []Cookie
	err     error
}

func (f *fakeLoginer) Login(_ context.Context, name string, creds upstream.Credentials) ([]Cookie, error) {
	f.name, f.creds = name, creds
	return f.cookies, f.err
}

func newTestRouter(l Loginer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(l, logger.Discard()).Register(r)
	return r
}

func doRequest(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, Reply) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var reply Reply
	_ = json.Unmarshal(w.Body.Bytes(), &reply)
	return w, reply
}

func TestHandler_LoginQueryString(t *testing.T) {
	l := &fakeLoginer{cookies: []Cookie{{Name: "JSESSIONID", Value: "abc"}, {Name: "route", Value: "r1"}}}
	r := newTestRouter(l)

	w, reply := doRequest(r, httptest.NewRequest(http.MethodGet, "/ima-login?cnpj=1&cpf=2&senha=p&unidadeCodigo=77", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeOK, reply.Codigo)
	assert.Equal(t, l.cookies, reply.Cookies)
	assert.Empty(t, reply.Erro)
	assert.Equal(t, "ima", l.name)
	assert.Equal(t, upstream.Credentials{CNPJ: "1", CPF: "2", Password: "p", UnitCode: "77"}, l.creds)
}

func TestHandler_LoginForm(t *testing.T) {
	l := &fakeLoginer{cookies: []Cookie{{Name: "JSESSIONID", Value: "abc"}}}
	r := newTestRouter(l)

	form := url.Values{"cnpj": {"1"}, "cpf": {"2"}, "senha": {"p"}}
	req := httptest.NewRequest(http.MethodPost, "/feam-login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, reply := doRequest(r, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeOK, reply.Codigo)
	assert.Equal(t, "feam", l.name)
	assert.Equal(t, upstream.Credentials{CNPJ: "1", CPF: "2", Password: "p"}, l.creds)
}

func TestHandler_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unknown flow", fmt.Errorf("%w: rs", ErrUnknownFlow), http.StatusNotFound},
		{"missing credentials", ErrMissingCredentials, http.StatusBadRequest},
		{"browser failure", errors.New("ima login failed: login did not reach marker"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeLoginer{err: tt.err})

			w, reply := doRequest(r, httptest.NewRequest(http.MethodGet, "/ima-login?cnpj=1", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, CodeError, reply.Codigo)
			assert.Equal(t, tt.err.Error(), reply.Erro)
			assert.Empty(t, reply.Cookies)
		})
	}
}

func TestHandler_UnknownRoute(t *testing.T) {
	l := &fakeLoginer{}
	r := newTestRouter(l)

	for _, path := range []string{"/ima", "/-login"} {
		w, reply := doRequest(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, http.StatusNotFound, reply.Codigo, path)
	}
	assert.Empty(t, l.name, "flow must not run")
}

func TestHandler_Healthz(t *testing.T) {
	r := newTestRouter(&fakeLoginer{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

// The handler speaks the protocol upstream.DelegatedLogin consumes
func TestHandler_DelegatedLoginRoundTrip(t *testing.T) {
	l := &fakeLoginer{cookies: []Cookie{{Name: "JSESSIONID", Value: "abc"}}}
	srv := httptest.NewServer(newTestRouter(l))
	defer srv.Close()

	resp, err := http.PostForm(srv.URL+"/ima-login?cnpj=1&cpf=2&senha=p", url.Values{})
	require.NoError(t, err)
	defer resp.Body.Close()

	var reply Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, CodeOK, reply.Codigo)
	assert.Equal(t, "abc", reply.Cookies[0].Value)
}
