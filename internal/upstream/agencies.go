package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/sirupsen/logrus"
)

// Default base URLs; <AGENCY>_BASE_URL overrides them.
var defaultBaseURLs = map[string]string{
	config.AgencyFEAM:  "https://mtr.meioambiente.mg.gov.br",
	config.AgencySEMAD: "https://mtr.meioambiente.go.gov.br",
	config.AgencySIGOR: "https://mtrr.cetesb.sp.gov.br",
	config.AgencySINIR: "https://admin.sinir.gov.br",
	config.AgencyFEPAM: "https://mtr.fepam.rs.gov.br",
	config.AgencyIMA:   "https://mtr.ima.sc.gov.br",
	config.AgencyINEA:  "http://mtr.inea.rj.gov.br",
}

const (
	controllerPath = "/ControllerServlet"
	dmrPath        = "/DMRServlet"
)

// chaveFeamHeader carries FEAM's secondary key next to the bearer token
const chaveFeamHeader = "chave_feam"

// EmbeddedAuth is the strategy for portals that take the credentials inside
// the query itself. It only checks that the required fields are present.
type EmbeddedAuth struct {
	Agency      string
	RequireCPF  bool
	RequireUnit bool
}

// Authenticate validates creds and returns an EmbeddedSession
func (e *EmbeddedAuth) Authenticate(_ context.Context, creds Credentials) (Session, error) {
	missing := []string{}
	if creds.CNPJ == "" {
		missing = append(missing, "cnpj")
	}
	if creds.Password == "" {
		missing = append(missing, "senha")
	}
	if e.RequireCPF && creds.CPF == "" {
		missing = append(missing, "cpf")
	}
	if e.RequireUnit && creds.UnitCode == "" {
		missing = append(missing, "unidadeGerador")
	}
	if len(missing) > 0 {
		return nil, InvalidRequest(e.Agency, opAuthenticate, strings.Join(missing, ", ")+" required")
	}
	return EmbeddedSession{}, nil
}

// Builder turns configuration into agency descriptors
type Builder struct {
	cfg       *config.Config
	transport *Transport
	logger    *logrus.Logger
}

// NewBuilder creates a descriptor builder
func NewBuilder(cfg *config.Config, transport *Transport, logger *logrus.Logger) *Builder {
	return &Builder{cfg: cfg, transport: transport, logger: logger}
}

func (b *Builder) baseURL(agency string) string {
	if u := b.cfg.Agency(agency).BaseURL; u != "" {
		return u
	}
	return defaultBaseURLs[agency]
}

func (b *Builder) partnerAccount(agency string) Credentials {
	p := b.cfg.Agency(agency).Partner
	if !p.Configured() {
		b.logger.WithField("agency", agency).Debug("No partner-search account configured; callers must send credenciais")
		return Credentials{}
	}
	return Credentials{CNPJ: p.CNPJ, CPF: p.CPF, Password: p.Password, UnitCode: p.UnitCode}
}

func (b *Builder) bearer(agency, path string, payload func(Credentials) (map[string]any, error), pred TokenPredicate) *BearerExchange {
	return &BearerExchange{
		Agency:    agency,
		URL:       b.baseURL(agency) + path,
		Encoding:  EncodeJSON,
		Payload:   payload,
		Predicate: pred,
		transport: b.transport,
		logger:    b.logger,
	}
}

func (b *Builder) cookie(agency string, accept func([]byte) bool) *CookieExchange {
	return &CookieExchange{
		Agency:    agency,
		URL:       b.baseURL(agency) + controllerPath,
		Accept:    accept,
		transport: b.transport,
		logger:    b.logger,
	}
}

func (b *Builder) delegated(agency, endpoint string) *DelegatedLogin {
	return &DelegatedLogin{
		Agency:     agency,
		ServiceURL: b.cfg.Automation.LoginServiceURL,
		Endpoint:   endpoint,
		Timeout:    b.cfg.Upstream.BrowserLoginTimeout,
		transport:  b.transport,
		logger:     b.logger,
	}
}

// Descriptors builds every configured agency. MTR, the generic variant, is
// only present when MTR_BASE_URL is set.
func (b *Builder) Descriptors() []Descriptor {
	out := []Descriptor{
		b.feam(),
		b.semad(),
		b.sinirFamily(config.AgencySIGOR),
		b.sinirFamily(config.AgencySINIR),
		b.fepam(),
		b.ima(),
		b.inea(),
	}
	if b.baseURL(config.AgencyMTR) != "" {
		out = append(out, b.sinirFamily(config.AgencyMTR))
	}
	return out
}

// personCode sends numeric codes as JSON numbers, like the portal's own form
func personCode(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func (b *Builder) feam() Descriptor {
	agency := config.AgencyFEAM
	requester := b.cfg.Agency(agency).RequesterCPF
	payload := func(c Credentials) (map[string]any, error) {
		cpf := c.CPF
		if cpf == "" {
			cpf = requester
		}
		if cpf == "" {
			return nil, errors.New("cpf is required (no FEAM_REQUESTER_CPF configured)")
		}
		if c.CNPJ == "" || c.Password == "" || c.UnitCode == "" {
			return nil, errors.New("cnpj, senha and unidadeGerador are required")
		}
		return map[string]any{
			"pessoaCodigo": personCode(c.UnitCode),
			"pessoaCnpj":   c.CNPJ,
			"usuarioCpf":   cpf,
			"senha":        c.Password,
		}, nil
	}

	return Descriptor{
		Name:         agency,
		BaseURL:      b.baseURL(agency),
		ManifestAuth: b.bearer(agency, "/api/gettoken", payload, tokenAndKey(chaveFeamHeader)),
		Manifest: &ManifestSpec{
			Method: http.MethodPost,
			URL: func(base string, q ManifestQuery, _ Credentials) string {
				return base + "/api/retornaManifesto/" + url.PathEscape(q.Barcode)
			},
		},
		DeclarationAuth: b.delegated(agency, "feam"),
		Declarations:    &DeclarationSpec{Path: dmrPath},
	}
}

func (b *Builder) semad() Descriptor {
	agency := config.AgencySEMAD
	payload := func(c Credentials) (map[string]any, error) {
		if c.CNPJ == "" || c.CPF == "" || c.Password == "" || c.UnitCode == "" {
			return nil, errors.New("pessoaCodigo, cnpj, cpf and senha are required")
		}
		return map[string]any{
			"pessoaCodigo": personCode(c.UnitCode),
			"pessoaCnpj":   c.CNPJ,
			"usuarioCpf":   c.CPF,
			"senha":        c.Password,
		}, nil
	}

	return Descriptor{
		Name:         agency,
		BaseURL:      b.baseURL(agency),
		ManifestAuth: b.bearer(agency, "/api/gettoken", payload, tokenWithReturnCode),
		Manifest: &ManifestSpec{
			Method: http.MethodPost,
			URL: func(base string, q ManifestQuery, _ Credentials) string {
				return base + "/api/retornaManifesto/" + url.PathEscape(q.Barcode)
			},
		},
		PartnerAuth:    b.cookie(agency, nil),
		Partner:        &PartnerSpec{Path: controllerPath},
		PartnerAccount: b.partnerAccount(agency),
	}
}

// sinirFamily covers SINIR, SIGOR and any other state running the same REST
// product (the generic MTR agency).
func (b *Builder) sinirFamily(agency string) Descriptor {
	payload := func(c Credentials) (map[string]any, error) {
		if c.CNPJ == "" || c.Password == "" || c.UnitCode == "" {
			return nil, errors.New("cpfCnpj, senha and unidade are required")
		}
		return map[string]any{
			"cpfCnpj": c.CNPJ,
			"senha":   c.Password,
			"unidade": c.UnitCode,
		}, nil
	}

	return Descriptor{
		Name:         agency,
		BaseURL:      b.baseURL(agency),
		ManifestAuth: b.bearer(agency, "/apiws/rest/gettoken", payload, objectResponseToken),
		Manifest: &ManifestSpec{
			Method: http.MethodGet,
			URL: func(base string, q ManifestQuery, _ Credentials) string {
				return base + "/apiws/rest/retornaManifesto/" + url.PathEscape(q.Barcode)
			},
		},
	}
}

func (b *Builder) fepam() Descriptor {
	agency := config.AgencyFEPAM
	return Descriptor{
		Name:         agency,
		BaseURL:      b.baseURL(agency),
		ManifestAuth: &EmbeddedAuth{Agency: agency, RequireCPF: true},
		Manifest: &ManifestSpec{
			Method: http.MethodPost,
			URL: func(base string, _ ManifestQuery, _ Credentials) string {
				return base + "/mtrservice/retornaManifesto"
			},
			Body: func(q ManifestQuery, c Credentials) any {
				return map[string]any{
					"cnp":   c.CNPJ,
					"login": c.CPF,
					"senha": c.Password,
					"manifestoJSON": map[string]any{
						"manifestoCodigo": q.Barcode,
					},
				}
			},
		},
		PartnerAuth:    b.cookie(agency, sucessoFlag),
		Partner:        &PartnerSpec{Path: controllerPath},
		PartnerAccount: b.partnerAccount(agency),
	}
}

// ima keeps the upstream's path layout, which carries the password.
func (b *Builder) ima() Descriptor {
	agency := config.AgencyIMA
	return Descriptor{
		Name:         agency,
		BaseURL:      b.baseURL(agency),
		ManifestAuth: &EmbeddedAuth{Agency: agency, RequireUnit: true},
		Manifest: &ManifestSpec{
			Method: http.MethodPost,
			URL: func(base string, q ManifestQuery, c Credentials) string {
				return fmt.Sprintf("%s/mtrservice/retornaManifesto/%s/%s/%s/%s", base,
					url.PathEscape(q.Barcode), url.PathEscape(c.UnitCode),
					url.PathEscape(c.Password), url.PathEscape(c.CNPJ))
			},
			LogURL: func(base string, q ManifestQuery) string {
				return fmt.Sprintf("%s/mtrservice/retornaManifesto/%s/<unit>/***/<cnpj>", base, q.Barcode)
			},
		},
		PartnerAuth:    b.delegated(agency, "ima"),
		Partner:        &PartnerSpec{Path: controllerPath},
		PartnerAccount: b.partnerAccount(agency),
	}
}

// inea also carries the password in the path.
func (b *Builder) inea() Descriptor {
	agency := config.AgencyINEA
	return Descriptor{
		Name:         agency,
		BaseURL:      b.baseURL(agency),
		ManifestAuth: &EmbeddedAuth{Agency: agency, RequireCPF: true, RequireUnit: true},
		Manifest: &ManifestSpec{
			Method: http.MethodPost,
			URL: func(base string, q ManifestQuery, c Credentials) string {
				return fmt.Sprintf("%s/api/retornaManifesto/%s/%s/%s/%s/%s", base,
					url.PathEscape(c.CPF), url.PathEscape(c.Password), url.PathEscape(c.CNPJ),
					url.PathEscape(c.UnitCode), url.PathEscape(q.Barcode))
			},
			LogURL: func(base string, q ManifestQuery) string {
				return fmt.Sprintf("%s/api/retornaManifesto/<cpf>/***/<cnpj>/<unit>/%s", base, q.Barcode)
			},
		},
		PartnerAuth:    b.cookie(agency, nil),
		Partner:        &PartnerSpec{Path: controllerPath},
		PartnerAccount: b.partnerAccount(agency),
	}
}
