package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/declaration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawJSON(t *testing.T, res *Result) string {
	t.Helper()
	raw, ok := res.Data.(json.RawMessage)
	require.True(t, ok, "data is %T", res.Data)
	return string(raw)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	body, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	m, ok := decodeObject(body)
	assert.True(t, ok, "body %q", body)
	return m
}

func TestFEAM_FetchManifest(t *testing.T) {
	var manifestHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/gettoken", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body := decodeBody(t, r)
		assert.Equal(t, json.Number("55"), body["pessoaCodigo"])
		assert.Equal(t, "12345678000190", body["pessoaCnpj"])
		assert.Equal(t, "11122233344", body["usuarioCpf"])
		assert.Equal(t, "segredo", body["senha"])
		w.Write([]byte(`{"token":"tok","chave":"key"}`))
	})
	mux.HandleFunc("/api/retornaManifesto/123", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&manifestHits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "key", r.Header.Get(chaveFeamHeader))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"numero":123}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyFEAM: srv.URL}, ""), config.AgencyFEAM)
	res, err := a.FetchManifest(context.Background(),
		Credentials{CNPJ: "12345678000190", CPF: "11122233344", Password: "segredo", UnitCode: "55"},
		ManifestQuery{Barcode: "123"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, config.AgencyFEAM, res.Agency)
	assert.Equal(t, ActionManifest, res.Action)
	assert.JSONEq(t, `{"numero":123}`, rawJSON(t, res))
	assert.EqualValues(t, 1, atomic.LoadInt32(&manifestHits))
}

func TestFEAM_RequesterCPFFallback(t *testing.T) {
	var cpf any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/gettoken" {
			cpf = decodeBody(t, r)["usuarioCpf"]
			w.Write([]byte(`{"token":"tok","chave":"key"}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := testConfig(map[string]string{config.AgencyFEAM: srv.URL}, "")
	cfg.Agencies[config.AgencyFEAM] = config.AgencyConfig{BaseURL: srv.URL, RequesterCPF: "99988877766"}

	_, err := testAdapter(t, cfg, config.AgencyFEAM).FetchManifest(context.Background(),
		Credentials{CNPJ: "1", Password: "p", UnitCode: "55"}, ManifestQuery{Barcode: "9"})
	require.NoError(t, err)
	assert.Equal(t, "99988877766", cpf)
}

func TestFEAM_MissingCPFFailsBeforeNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyFEAM: srv.URL}, ""), config.AgencyFEAM)
	_, err := a.FetchManifest(context.Background(), Credentials{CNPJ: "1", Password: "p", UnitCode: "55"}, ManifestQuery{Barcode: "9"})

	assert.True(t, IsKind(err, KindInvalidRequest), "got %v", err)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFetchManifest_EmptyBarcode(t *testing.T) {
	a := testAdapter(t, testConfig(nil, ""), config.AgencySINIR)

	_, err := a.FetchManifest(context.Background(), Credentials{CNPJ: "1", Password: "p", UnitCode: "u"}, ManifestQuery{Barcode: "  "})
	assert.True(t, IsKind(err, KindInvalidRequest))
}

func TestSEMAD_FetchManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/gettoken", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, json.Number("98765"), body["pessoaCodigo"])
		w.Write([]byte(`{"retornoCodigo":0,"token":"semad-token"}`))
	})
	mux.HandleFunc("/api/retornaManifesto/777", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer semad-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"manifesto":{"codigo":777}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencySEMAD: srv.URL}, ""), config.AgencySEMAD)
	res, err := a.FetchManifest(context.Background(),
		Credentials{CNPJ: "1", CPF: "2", Password: "p", UnitCode: "98765"}, ManifestQuery{Barcode: "777"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"manifesto":{"codigo":777}}`, rawJSON(t, res))
}

func sinirPortal(t *testing.T, tokenBody string, manifest http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var manifestHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/apiws/rest/gettoken", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "12345678000190", body["cpfCnpj"])
		assert.Equal(t, "4321", body["unidade"])
		w.Write([]byte(tokenBody))
	})
	mux.HandleFunc("/apiws/rest/retornaManifesto/240012345678", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&manifestHits, 1)
		manifest(w, r)
	})
	return httptest.NewServer(mux), &manifestHits
}

var sinirCreds = Credentials{CNPJ: "12345678000190", Password: "p", UnitCode: "4321"}

func TestSinirFamily_FetchManifest(t *testing.T) {
	for _, agency := range []string{config.AgencySINIR, config.AgencySIGOR, config.AgencyMTR} {
		t.Run(agency, func(t *testing.T) {
			srv, hits := sinirPortal(t, `{"erro":false,"objetoResposta":"Bearer abc"}`, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
				w.Write([]byte(`{"erro":false,"objetoResposta":{"manNumero":"240012345678"}}`))
			})
			defer srv.Close()

			a := testAdapter(t, testConfig(map[string]string{agency: srv.URL}, ""), agency)
			res, err := a.FetchManifest(context.Background(), sinirCreds, ManifestQuery{Barcode: "240012345678"})
			require.NoError(t, err)

			assert.Equal(t, agency, res.Agency)
			assert.JSONEq(t, `{"erro":false,"objetoResposta":{"manNumero":"240012345678"}}`, rawJSON(t, res))
			assert.EqualValues(t, 1, atomic.LoadInt32(hits))
		})
	}
}

func TestSinirFamily_RejectedLoginSkipsQuery(t *testing.T) {
	srv, hits := sinirPortal(t, `{"erro":true,"mensagem":"Usuário ou senha inválidos"}`, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencySINIR: srv.URL}, ""), config.AgencySINIR)
	_, err := a.FetchManifest(context.Background(), sinirCreds, ManifestQuery{Barcode: "240012345678"})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthenticationRejected), "got %v", err)
	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Contains(t, ue.Body, "inválidos")
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestSinirFamily_QueryOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
		hits   int32
	}{
		{"html login page", http.StatusOK, "<html>login</html>", KindSessionInvalid, 1},
		{"empty body", http.StatusOK, "", KindSessionInvalid, 1},
		{"unauthorized", http.StatusUnauthorized, "", KindSessionInvalid, 1},
		{"not found", http.StatusNotFound, "", KindUpstreamUnavailable, 1},
		{"retried outage", http.StatusServiceUnavailable, "down", KindUpstreamUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, hits := sinirPortal(t, `{"objetoResposta":"Bearer abc"}`, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			a := testAdapter(t, testConfig(map[string]string{config.AgencySINIR: srv.URL}, ""), config.AgencySINIR)
			_, err := a.FetchManifest(context.Background(), sinirCreds, ManifestQuery{Barcode: "240012345678"})

			assert.True(t, IsKind(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.hits, atomic.LoadInt32(hits))
		})
	}
}

func TestFEAM_ManifestOutageIsNotRetried(t *testing.T) {
	var manifestHits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/gettoken", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"token":"tok","chave":"key"}`))
	})
	mux.HandleFunc("/api/retornaManifesto/123", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&manifestHits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("down"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyFEAM: srv.URL}, ""), config.AgencyFEAM)
	res, err := a.FetchManifest(context.Background(),
		Credentials{CNPJ: "12345678000190", CPF: "11122233344", Password: "segredo", UnitCode: "55"},
		ManifestQuery{Barcode: "123"})

	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindUpstreamUnavailable), "got %v", err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&manifestHits))

	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusServiceUnavailable, ue.Status)
	assert.Equal(t, "down", ue.Body)
}

func TestMTR_OnlyRegisteredWhenConfigured(t *testing.T) {
	r := testRegistry(t, testConfig(nil, ""))
	_, ok := r.Get(config.AgencyMTR)
	assert.False(t, ok)
	assert.Equal(t, []string{"FEAM", "FEPAM", "IMA", "INEA", "SEMAD", "SIGOR", "SINIR"}, r.Names())

	r = testRegistry(t, testConfig(map[string]string{config.AgencyMTR: "http://mtr.example"}, ""))
	a, ok := r.Get("mtr")
	require.True(t, ok)
	assert.Equal(t, config.AgencyMTR, a.Name())
}

func TestFEPAM_FetchManifest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mtrservice/retornaManifesto", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		body := decodeBody(t, r)
		assert.Equal(t, "12345678000190", body["cnp"])
		assert.Equal(t, "11122233344", body["login"])
		assert.Equal(t, "p", body["senha"])
		assert.Equal(t, map[string]any{"manifestoCodigo": "000123"}, body["manifestoJSON"])
		w.Write([]byte(`{"mensagem":"ok","objetoResposta":{}}`))
	}))
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyFEPAM: srv.URL}, ""), config.AgencyFEPAM)
	res, err := a.FetchManifest(context.Background(),
		Credentials{CNPJ: "12345678000190", CPF: "11122233344", Password: "p"}, ManifestQuery{Barcode: "000123"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestEmbedded_CredentialsInPath(t *testing.T) {
	tests := []struct {
		agency string
		path   string
	}{
		{config.AgencyINEA, "/api/retornaManifesto/111/s3nha/222/77/BC1"},
		{config.AgencyIMA, "/mtrservice/retornaManifesto/BC1/77/s3nha/222"},
	}

	for _, tt := range tests {
		t.Run(tt.agency, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				w.Write([]byte(`{"manifesto":"BC1"}`))
			}))
			defer srv.Close()

			a := testAdapter(t, testConfig(map[string]string{tt.agency: srv.URL}, ""), tt.agency)
			res, err := a.FetchManifest(context.Background(),
				Credentials{CPF: "111", Password: "s3nha", CNPJ: "222", UnitCode: "77"}, ManifestQuery{Barcode: "BC1"})
			require.NoError(t, err)
			assert.JSONEq(t, `{"manifesto":"BC1"}`, rawJSON(t, res))
		})
	}
}

func TestEmbedded_RefusalIsAuthenticationRejected(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusUnauthorized} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		a := testAdapter(t, testConfig(map[string]string{config.AgencyINEA: srv.URL}, ""), config.AgencyINEA)
		_, err := a.FetchManifest(context.Background(),
			Credentials{CPF: "1", Password: "p", CNPJ: "2", UnitCode: "3"}, ManifestQuery{Barcode: "4"})
		srv.Close()

		assert.True(t, IsKind(err, KindAuthenticationRejected), "status %d: got %v", status, err)
	}
}

func TestEmbedded_MissingFieldsFailBeforeNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyIMA: srv.URL}, ""), config.AgencyIMA)
	_, err := a.FetchManifest(context.Background(), Credentials{CNPJ: "1", Password: "p"}, ManifestQuery{Barcode: "4"})

	assert.True(t, IsKind(err, KindInvalidRequest))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

var partnerCreds = Credentials{CNPJ: "12345678000190", CPF: "11122233344", Password: "p"}

func TestSearchPartner(t *testing.T) {
	srv, searches := cookiePortal(t, "ok", []*http.Cookie{
		{Name: "JSESSIONID", Value: "s", Path: "/"},
		{Name: "TS01", Value: "w", Path: "/"},
	}, []string{"JSESSIONID", "TS01"})
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyINEA: srv.URL}, ""), config.AgencyINEA)
	res, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "99888777000166", Role: "destinador"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, ActionSearchPartner, res.Action)
	assert.JSONEq(t, `{"cnpj":"99888777000166","tipoPessoa":"3"}`, rawJSON(t, res))
	assert.EqualValues(t, 1, atomic.LoadInt32(searches))
}

func TestSearchPartner_MissingCompanionCookieDegrades(t *testing.T) {
	srv, _ := cookiePortal(t, "ok", []*http.Cookie{{Name: "JSESSIONID", Value: "s", Path: "/"}}, []string{"JSESSIONID", "TS01"})
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyINEA: srv.URL}, ""), config.AgencyINEA)
	res, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "1", Role: "transportador"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, KindSessionInvalid, res.Reason)
	diag, ok := res.Data.(Diagnostic)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, diag.Status)
	assert.Equal(t, "text/html", diag.ContentType)
	assert.Contains(t, diag.RawTextPrefix, "Sessão expirada")
}

func TestSearchPartner_Non200Degrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("acao") == "autenticaUsuario" {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s", Path: "/"})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("java.lang.NullPointerException"))
	}))
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencySEMAD: srv.URL}, ""), config.AgencySEMAD)
	res, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "1", Role: "armazenador"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, KindUpstreamUnavailable, res.Reason)
	assert.Equal(t, http.StatusInternalServerError, res.Data.(Diagnostic).Status)
}

func TestSearchPartner_InvalidInputFailsBeforeNetwork(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyINEA: srv.URL}, ""), config.AgencyINEA)

	_, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "1", Role: "gerador"})
	require.Error(t, err)
	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, KindInvalidRequest, ue.Kind)
	assert.Equal(t, config.AgencyINEA, ue.Agency)

	_, err = a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: " ", Role: "destinador"})
	assert.True(t, IsKind(err, KindInvalidRequest))

	_, err = a.SearchPartner(context.Background(), Credentials{}, PartnerQuery{CNPJ: "1", Role: "destinador"})
	assert.True(t, IsKind(err, KindInvalidRequest))

	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSearchPartner_ServiceAccountFallback(t *testing.T) {
	var loginCNPJ string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("acao") == "autenticaUsuario" {
			loginCNPJ = r.PostForm.Get("cnpj")
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "s", Path: "/"})
			w.Write([]byte(`{"sucesso":"s"}`))
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := testConfig(nil, "")
	cfg.Agencies[config.AgencyFEPAM] = config.AgencyConfig{
		BaseURL: srv.URL,
		Partner: config.PartnerAccount{CNPJ: "55444333000122", Password: "svc"},
	}

	res, err := testAdapter(t, cfg, config.AgencyFEPAM).SearchPartner(context.Background(), Credentials{}, PartnerQuery{CNPJ: "1", Role: "destinador"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "55444333000122", loginCNPJ)
}

func TestSearchPartner_DelegatedLogin(t *testing.T) {
	helper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ima-login", r.URL.Path)
		w.Write([]byte(`{"codigo":200,"cookies":[{"name":"JSESSIONID","value":"browser"}]}`))
	}))
	defer helper.Close()

	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JSESSIONID=browser", r.Header.Get("Cookie"))
		w.Write([]byte(`{"parceiros":[]}`))
	}))
	defer portal.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyIMA: portal.URL}, helper.URL), config.AgencyIMA)
	res, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "1", Role: "destinador"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestSearchPartner_TransportFailureDegrades(t *testing.T) {
	helper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"codigo":200,"cookies":[{"name":"JSESSIONID","value":"browser"}]}`))
	}))
	defer helper.Close()

	portal := httptest.NewServer(http.NotFoundHandler())
	portalURL := portal.URL
	portal.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyIMA: portalURL}, helper.URL), config.AgencyIMA)
	res, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "1", Role: "destinador"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, KindUpstreamUnavailable, res.Reason)
	diag, ok := res.Data.(Diagnostic)
	require.True(t, ok)
	assert.False(t, diag.OK)
	assert.Zero(t, diag.Status)
	assert.NotEmpty(t, diag.RawTextPrefix)
}

func TestSearchPartner_DelegatedLoginNeedsCPF(t *testing.T) {
	var hits int32
	helper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer helper.Close()

	a := testAdapter(t, testConfig(map[string]string{config.AgencyIMA: "http://127.0.0.1:1"}, helper.URL), config.AgencyIMA)
	_, err := a.SearchPartner(context.Background(), Credentials{CNPJ: "1", Password: "p"}, PartnerQuery{CNPJ: "1", Role: "destinador"})

	assert.True(t, IsKind(err, KindInvalidRequest), "got %v", err)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestUnsupportedAction(t *testing.T) {
	a := testAdapter(t, testConfig(nil, ""), config.AgencySINIR)

	assert.False(t, a.Supports(ActionSearchPartner))
	_, err := a.SearchPartner(context.Background(), partnerCreds, PartnerQuery{CNPJ: "1", Role: "destinador"})
	assert.True(t, IsKind(err, KindInvalidRequest))

	_, err = a.ListDeclarations(context.Background(), partnerCreds, DeclarationPage{})
	assert.True(t, IsKind(err, KindInvalidRequest))
}

const portalLoginHTML = `<html><body><p>Sessao expirada</p>
<form><input id="txtCnpj"><input id="txtSenha" type="password"><button id="btEntrar">Entrar</button></form></body></html>`

const declarationHTML = `<input id="razaoSocial" value="Empresa X">
<table id="tabelaResiduos"><tr><td>D</td><td>Lodo</td><td>II A</td><td>1,5</td><td>2</td><td>0</td><td>t</td><td>Aterro</td></tr></table>`

// dmrPortal serves the FEAM login helper and the DMR servlet
func dmrPortal(t *testing.T) (*Adapter, func()) {
	t.Helper()
	helper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feam-login", r.URL.Path)
		w.Write([]byte(`{"codigo":200,"cookies":{"JSESSIONID":"dmr"}}`))
	}))
	portal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, dmrPath, r.URL.Path)
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		assert.Equal(t, "JSESSIONID=dmr", r.Header.Get("Cookie"))
		r.ParseForm()
		switch r.Form.Get("acao") {
		case ActionListDeclarations:
			assert.Equal(t, http.MethodGet, r.Method)
			json.NewEncoder(w).Encode(map[string]string{
				"sEcho":          r.Form.Get("sEcho"),
				"iDisplayStart":  r.Form.Get("iDisplayStart"),
				"iDisplayLength": r.Form.Get("iDisplayLength"),
				"sSearch":        r.Form.Get("sSearch"),
			})
		case ActionFilterDeclarations:
			assert.Equal(t, http.MethodPost, r.Method)
			if r.PostForm.Get("dataInicial") == "expired" {
				w.Write([]byte(portalLoginHTML))
				return
			}
			w.Write([]byte("<tr><td>" + r.PostForm.Get("dataInicial") + "</td></tr>"))
		case ActionUpdateItems:
			assert.Equal(t, http.MethodPost, r.Method)
			assert.JSONEq(t, `[{"id":1}]`, r.PostForm.Get("itens"))
			w.Write([]byte(`{"sucesso":true,"codigo":"` + r.PostForm.Get("codigo") + `"}`))
		case ActionDeclaration:
			switch r.Form.Get("codigo") {
			case "expired":
				w.Write([]byte(portalLoginHTML))
			case "blank":
				w.Write([]byte("<html><body><p>Sessao expirada</p></body></html>"))
			default:
				w.Write([]byte(declarationHTML))
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))

	a := testAdapter(t, testConfig(map[string]string{config.AgencyFEAM: portal.URL}, helper.URL), config.AgencyFEAM)
	return a, func() {
		portal.Close()
		helper.Close()
	}
}

func TestDeclarations(t *testing.T) {
	a, closeAll := dmrPortal(t)
	defer closeAll()
	ctx := context.Background()

	t.Run("list", func(t *testing.T) {
		res, err := a.ListDeclarations(ctx, partnerCreds, DeclarationPage{Start: 20, Search: "2025", Draw: 3})
		require.NoError(t, err)
		assert.JSONEq(t, `{"sEcho":"3","iDisplayStart":"20","iDisplayLength":"10","sSearch":"2025"}`, rawJSON(t, res))
	})

	t.Run("list rejects negative paging", func(t *testing.T) {
		_, err := a.ListDeclarations(ctx, partnerCreds, DeclarationPage{Start: -1})
		assert.True(t, IsKind(err, KindInvalidRequest))
	})

	t.Run("filter returns html text", func(t *testing.T) {
		res, err := a.FilterDeclarations(ctx, partnerCreds, DateRange{Start: "01/01/2025", End: "30/06/2025"})
		require.NoError(t, err)
		assert.Equal(t, "<tr><td>01/01/2025</td></tr>", res.Data)
	})

	t.Run("update items", func(t *testing.T) {
		res, err := a.UpdateDeclaredItems(ctx, partnerCreds, "5555", json.RawMessage(`[{"id":1}]`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"sucesso":true,"codigo":"5555"}`, rawJSON(t, res))
	})

	t.Run("update items requires json", func(t *testing.T) {
		_, err := a.UpdateDeclaredItems(ctx, partnerCreds, "5555", json.RawMessage(`not json`))
		assert.True(t, IsKind(err, KindInvalidRequest))
	})

	t.Run("declaration is parsed", func(t *testing.T) {
		res, err := a.FetchDeclaration(ctx, partnerCreds, "5555")
		require.NoError(t, err)

		rec, ok := res.Data.(declaration.Record)
		require.True(t, ok)
		assert.Equal(t, "Empresa X", rec.GeneratorProfile.CompanyName)
		require.Len(t, rec.WasteItems, 1)
		assert.InDelta(t, 1.5, *rec.WasteItems[0].QuantityDisposed, 1e-9)
	})

	t.Run("login page instead of declaration is session invalid", func(t *testing.T) {
		for _, code := range []string{"expired", "blank"} {
			res, err := a.FetchDeclaration(ctx, partnerCreds, code)
			assert.Nil(t, res, code)
			assert.True(t, IsKind(err, KindSessionInvalid), "%s: got %v", code, err)
		}
	})

	t.Run("login page instead of filter result is session invalid", func(t *testing.T) {
		res, err := a.FilterDeclarations(ctx, partnerCreds, DateRange{Start: "expired", End: "30/06/2025"})
		assert.Nil(t, res)
		assert.True(t, IsKind(err, KindSessionInvalid), "got %v", err)
	})
}
