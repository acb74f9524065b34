package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nexconsult/mtr-api/internal/declaration"
	"github.com/sirupsen/logrus"
)

// Action names reported in Result.Action and used as the op in errors.
const (
	ActionManifest           = "retornaManifesto"
	ActionSearchPartner      = "pesquisarParceiro"
	ActionListDeclarations   = "listarDeclaracoes"
	ActionFilterDeclarations = "filtrarDeclaracoes"
	ActionUpdateItems        = "atualizarItensDeclarados"
	ActionDeclaration        = "visualizarDeclaracao"
)

const opSearchPartner = ActionSearchPartner

// ManifestQuery identifies the manifest to fetch
type ManifestQuery struct {
	Barcode       string
	GeneratorUnit string
}

// ManifestSpec describes an agency's manifest endpoint. URL and Body receive
// the credentials because some portals embed them in the request itself.
type ManifestSpec struct {
	Method string
	URL    func(base string, q ManifestQuery, creds Credentials) string
	// LogURL masks secrets carried in URL; nil logs URL without its query.
	LogURL func(base string, q ManifestQuery) string
	// Body returns the JSON request body; nil sends none.
	Body func(q ManifestQuery, creds Credentials) any
}

// DeclarationSpec describes the DMR servlet
type DeclarationSpec struct {
	Path string
}

// DeclarationPage is a datatable-style listing request. Draw is echoed back
// by the upstream so the client can correlate pages.
type DeclarationPage struct {
	Start  int
	Length int
	Search string
	Draw   int
}

// DateRange filters declarations by period (dd/mm/yyyy)
type DateRange struct {
	Start string
	End   string
}

// Descriptor is everything that makes one agency different from another.
// Nil specs mean the agency does not offer that operation.
type Descriptor struct {
	Name    string
	BaseURL string

	ManifestAuth Authenticator
	Manifest     *ManifestSpec

	PartnerAuth    Authenticator
	Partner        *PartnerSpec
	PartnerAccount Credentials

	DeclarationAuth Authenticator
	Declarations    *DeclarationSpec
}

// Adapter runs the authenticate-then-query chain for one agency. It holds no
// per-request state: every call authenticates fresh and the session dies
// with the call.
type Adapter struct {
	desc      Descriptor
	transport *Transport
	logger    *logrus.Logger
}

// NewAdapter creates an adapter for desc
func NewAdapter(desc Descriptor, transport *Transport, logger *logrus.Logger) *Adapter {
	return &Adapter{desc: desc, transport: transport, logger: logger}
}

// Name returns the agency name
func (a *Adapter) Name() string { return a.desc.Name }

// Supports reports whether the agency offers action
func (a *Adapter) Supports(action string) bool {
	switch action {
	case ActionManifest:
		return a.desc.Manifest != nil && a.desc.ManifestAuth != nil
	case ActionSearchPartner:
		return a.desc.Partner != nil && a.desc.PartnerAuth != nil
	case ActionListDeclarations, ActionFilterDeclarations, ActionUpdateItems, ActionDeclaration:
		return a.desc.Declarations != nil && a.desc.DeclarationAuth != nil
	}
	return false
}

func (a *Adapter) unsupported(action string) error {
	return InvalidRequest(a.desc.Name, action, fmt.Sprintf("%s does not support %s", a.desc.Name, action))
}

// FetchManifest authenticates and retrieves one manifest
func (a *Adapter) FetchManifest(ctx context.Context, creds Credentials, q ManifestQuery) (*Result, error) {
	if !a.Supports(ActionManifest) {
		return nil, a.unsupported(ActionManifest)
	}
	if strings.TrimSpace(q.Barcode) == "" {
		return nil, InvalidRequest(a.desc.Name, ActionManifest, "manifest barcode or number is required")
	}

	session, err := a.desc.ManifestAuth.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	spec := a.desc.Manifest
	req := &Request{
		Agency: a.desc.Name,
		Op:     ActionManifest,
		Method: spec.Method,
		URL:    spec.URL(a.desc.BaseURL, q, creds),
		Header: http.Header{},
	}
	if spec.LogURL != nil {
		req.LogURL = spec.LogURL(a.desc.BaseURL, q)
	}
	if spec.Body != nil {
		req.Body, err = json.Marshal(spec.Body(q, creds))
		if err != nil {
			return nil, fmt.Errorf("failed to encode manifest request: %w", err)
		}
		req.ContentType = "application/json"
	}
	req.Header.Set("Accept", "application/json")
	session.Apply(req.Header)

	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := a.checkQuery(ActionManifest, session, resp, true); err != nil {
		return nil, err
	}
	return Normalize(a.desc.Name, ActionManifest, resp.Body), nil
}

// SearchPartner looks a counterparty up by CNPJ and role. Caller credentials
// take precedence over the configured service account. Responses the
// upstream garbles come back as a failed Result carrying a Diagnostic
// instead of an error.
func (a *Adapter) SearchPartner(ctx context.Context, creds Credentials, q PartnerQuery) (*Result, error) {
	if !a.Supports(ActionSearchPartner) {
		return nil, a.unsupported(ActionSearchPartner)
	}
	role, err := ParseRole(q.Role)
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			ue.Agency = a.desc.Name
		}
		return nil, err
	}
	if strings.TrimSpace(q.CNPJ) == "" {
		return nil, InvalidRequest(a.desc.Name, ActionSearchPartner, "cnpj is required")
	}
	if creds.Empty() {
		creds = a.desc.PartnerAccount
	}
	if creds.CNPJ == "" || creds.Password == "" {
		return nil, InvalidRequest(a.desc.Name, ActionSearchPartner, "no credentials supplied and no partner-search account configured")
	}

	session, err := a.desc.PartnerAuth.Authenticate(ctx, creds)
	if err != nil {
		return nil, err
	}

	spec := a.desc.Partner
	req := &Request{
		Agency:      a.desc.Name,
		Op:          ActionSearchPartner,
		Method:      http.MethodPost,
		URL:         a.desc.BaseURL + spec.Path,
		Header:      http.Header{},
		Body:        []byte(spec.Fields(role, q.CNPJ).Encode()),
		ContentType: "application/x-www-form-urlencoded",
	}
	session.Apply(req.Header)

	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) && ue.Kind == KindUpstreamUnavailable {
			// no HTTP answer at all; status 0 marks the missing response
			a.logger.WithFields(logrus.Fields{
				"agency": a.desc.Name,
				"op":     ActionSearchPartner,
				"error":  err.Error(),
			}).Warn("Partner search transport failed, returning diagnostic")
			return Failed(a.desc.Name, ActionSearchPartner, KindUpstreamUnavailable, transportDiagnostic(err)), nil
		}
		return nil, err
	}

	switch {
	case resp.Status != http.StatusOK:
		a.logDegraded(ActionSearchPartner, resp, KindUpstreamUnavailable)
		return Failed(a.desc.Name, ActionSearchPartner, KindUpstreamUnavailable, newDiagnostic(resp)), nil
	case !isJSONBody(resp.Body):
		a.logDegraded(ActionSearchPartner, resp, KindSessionInvalid)
		return Failed(a.desc.Name, ActionSearchPartner, KindSessionInvalid, newDiagnostic(resp)), nil
	}
	return Normalize(a.desc.Name, ActionSearchPartner, resp.Body), nil
}

// ListDeclarations pages through the DMR listing. GET, so it is retried.
func (a *Adapter) ListDeclarations(ctx context.Context, creds Credentials, page DeclarationPage) (*Result, error) {
	if !a.Supports(ActionListDeclarations) {
		return nil, a.unsupported(ActionListDeclarations)
	}
	if page.Start < 0 || page.Length < 0 {
		return nil, InvalidRequest(a.desc.Name, ActionListDeclarations, "start and length must not be negative")
	}
	if page.Length == 0 {
		page.Length = 10
	}

	q := url.Values{}
	q.Set("acao", ActionListDeclarations)
	q.Set("iDisplayStart", strconv.Itoa(page.Start))
	q.Set("iDisplayLength", strconv.Itoa(page.Length))
	q.Set("sSearch", page.Search)
	q.Set("sEcho", strconv.Itoa(page.Draw))

	resp, session, err := a.declarationCall(ctx, creds, ActionListDeclarations, http.MethodGet, q)
	if err != nil {
		return nil, err
	}
	if err := a.checkQuery(ActionListDeclarations, session, resp, true); err != nil {
		return nil, err
	}
	return Normalize(a.desc.Name, ActionListDeclarations, resp.Body), nil
}

// FilterDeclarations posts a date-range filter. The upstream answers with an
// HTML fragment which is returned as text, unparsed.
func (a *Adapter) FilterDeclarations(ctx context.Context, creds Credentials, r DateRange) (*Result, error) {
	if !a.Supports(ActionFilterDeclarations) {
		return nil, a.unsupported(ActionFilterDeclarations)
	}
	if r.Start == "" || r.End == "" {
		return nil, InvalidRequest(a.desc.Name, ActionFilterDeclarations, "dataInicial and dataFinal are required")
	}

	form := url.Values{}
	form.Set("acao", ActionFilterDeclarations)
	form.Set("dataInicial", r.Start)
	form.Set("dataFinal", r.End)

	resp, session, err := a.declarationCall(ctx, creds, ActionFilterDeclarations, http.MethodPost, form)
	if err != nil {
		return nil, err
	}
	if err := a.checkQuery(ActionFilterDeclarations, session, resp, false); err != nil {
		return nil, err
	}
	if err := a.checkLoginPage(ActionFilterDeclarations, resp); err != nil {
		return nil, err
	}
	return Succeeded(a.desc.Name, ActionFilterDeclarations, string(resp.Body)), nil
}

// UpdateDeclaredItems forwards the item list to the DMR servlet. It is the
// only write the gateway performs upstream and is never retried.
func (a *Adapter) UpdateDeclaredItems(ctx context.Context, creds Credentials, code string, items json.RawMessage) (*Result, error) {
	if !a.Supports(ActionUpdateItems) {
		return nil, a.unsupported(ActionUpdateItems)
	}
	if strings.TrimSpace(code) == "" {
		return nil, InvalidRequest(a.desc.Name, ActionUpdateItems, "declaracaoCodigo is required")
	}
	if !isJSONBody(items) {
		return nil, InvalidRequest(a.desc.Name, ActionUpdateItems, "itens must be valid JSON")
	}

	form := url.Values{}
	form.Set("acao", ActionUpdateItems)
	form.Set("codigo", code)
	form.Set("itens", string(items))

	resp, session, err := a.declarationCall(ctx, creds, ActionUpdateItems, http.MethodPost, form)
	if err != nil {
		return nil, err
	}
	if err := a.checkQuery(ActionUpdateItems, session, resp, false); err != nil {
		return nil, err
	}
	if err := a.checkLoginPage(ActionUpdateItems, resp); err != nil {
		return nil, err
	}
	return Normalize(a.desc.Name, ActionUpdateItems, resp.Body), nil
}

// FetchDeclaration downloads one declaration page and parses it
func (a *Adapter) FetchDeclaration(ctx context.Context, creds Credentials, code string) (*Result, error) {
	if !a.Supports(ActionDeclaration) {
		return nil, a.unsupported(ActionDeclaration)
	}
	if strings.TrimSpace(code) == "" {
		return nil, InvalidRequest(a.desc.Name, ActionDeclaration, "declaracaoCodigo is required")
	}

	q := url.Values{}
	q.Set("acao", ActionDeclaration)
	q.Set("codigo", code)

	resp, session, err := a.declarationCall(ctx, creds, ActionDeclaration, http.MethodGet, q)
	if err != nil {
		return nil, err
	}
	if err := a.checkQuery(ActionDeclaration, session, resp, false); err != nil {
		return nil, err
	}
	if err := a.checkLoginPage(ActionDeclaration, resp); err != nil {
		return nil, err
	}
	if !declaration.HasDeclaration(string(resp.Body)) {
		return nil, sessionInvalid(a.desc.Name, ActionDeclaration, resp.Status, "page carries no declaration; session not accepted", resp.Body)
	}

	record, err := declaration.Parse(string(resp.Body))
	if err != nil {
		return nil, unavailable(a.desc.Name, ActionDeclaration, resp.Status, "declaration page could not be parsed", resp.Body, err)
	}
	return Succeeded(a.desc.Name, ActionDeclaration, record), nil
}

// declarationCall authenticates and issues one DMR servlet call. GET params
// go in the query string, POST params in a form body.
func (a *Adapter) declarationCall(ctx context.Context, creds Credentials, op, method string, params url.Values) (*Response, Session, error) {
	session, err := a.desc.DeclarationAuth.Authenticate(ctx, creds)
	if err != nil {
		return nil, nil, err
	}

	endpoint := a.desc.BaseURL + a.desc.Declarations.Path
	req := &Request{
		Agency: a.desc.Name,
		Op:     op,
		Method: method,
		URL:    endpoint,
		Header: http.Header{},
	}
	if method == http.MethodGet {
		req.URL = endpoint + "?" + params.Encode()
	} else {
		req.Body = []byte(params.Encode())
		req.ContentType = "application/x-www-form-urlencoded"
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	session.Apply(req.Header)

	resp, err := a.transport.Do(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return resp, session, nil
}

// checkQuery classifies a query response. A portal that dropped the session
// still answers 200, but with an empty or HTML body; that is SessionInvalid,
// or AuthenticationRejected when the credentials travel with the query
// itself.
func (a *Adapter) checkQuery(op string, session Session, resp *Response, wantJSON bool) error {
	_, embedded := session.(EmbeddedSession)

	switch resp.Status {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		if embedded {
			return rejected(a.desc.Name, op, resp.Status, "upstream refused the embedded credentials", resp.Body)
		}
		return sessionInvalid(a.desc.Name, op, resp.Status, "upstream refused the session", resp.Body)
	default:
		return unavailable(a.desc.Name, op, resp.Status, fmt.Sprintf("%s returned status %d", op, resp.Status), resp.Body, nil)
	}

	empty := len(strings.TrimSpace(string(resp.Body))) == 0
	if !empty && (!wantJSON || isJSONBody(resp.Body)) {
		return nil
	}
	if embedded {
		return rejected(a.desc.Name, op, resp.Status, "upstream answered without data; credentials likely not accepted", resp.Body)
	}
	return sessionInvalid(a.desc.Name, op, resp.Status, "upstream answered without data; session not accepted", resp.Body)
}

// checkLoginPage catches the 200 login form a cookie portal serves once it
// has dropped the session
func (a *Adapter) checkLoginPage(op string, resp *Response) error {
	if !declaration.IsLoginPage(string(resp.Body)) {
		return nil
	}
	return sessionInvalid(a.desc.Name, op, resp.Status, "upstream served its login page; session not accepted", resp.Body)
}

func (a *Adapter) logDegraded(op string, resp *Response, reason Kind) {
	a.logger.WithFields(logrus.Fields{
		"agency":       a.desc.Name,
		"op":           op,
		"status":       resp.Status,
		"content_type": resp.ContentType,
		"reason":       reason.Code(),
	}).Warn("Upstream returned a non-JSON answer, returning diagnostic")
}
