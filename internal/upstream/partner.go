package upstream

import (
	"fmt"
	"net/url"
	"strings"
)

// Role is the counterparty role searched for
type Role string

const (
	RoleDestination Role = "destination"
	RoleCarrier     Role = "carrier"
	RoleStorer      Role = "storer"
)

// roleAliases accepts both the canonical names and the portuguese ones
// callers send as tipoParceiro.
var roleAliases = map[string]Role{
	"destination":   RoleDestination,
	"destinador":    RoleDestination,
	"destino":       RoleDestination,
	"carrier":       RoleCarrier,
	"transportador": RoleCarrier,
	"storer":        RoleStorer,
	"armazenador":   RoleStorer,
}

// ParseRole maps a caller role string; unknown strings are an InvalidRequest
func ParseRole(s string) (Role, error) {
	role, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", InvalidRequest("", opSearchPartner, fmt.Sprintf("tipoParceiro %q is not one of destinador, transportador, armazenador", s))
	}
	return role, nil
}

// PartnerQuery is the partner search input
type PartnerQuery struct {
	CNPJ string
	Role string
}

// PartnerSpec describes an agency's partner search endpoint. The numeric
// tipoPessoa codes are the upstream's own encoding.
type PartnerSpec struct {
	Path            string
	Action          string
	CarrierCode     string
	DestinationCode string
}

// Default tipoPessoa codes used by the legacy MTR controllers
const (
	TipoPessoaCarrier     = "2"
	TipoPessoaDestination = "3"
)

// Fields builds the search form for role. It is total over the three roles:
// storer reuses the carrier code and adds armazenador=S with an empty
// codigoUnidade.
func (p PartnerSpec) Fields(role Role, cnpj string) url.Values {
	form := url.Values{}
	form.Set("acao", p.action())
	form.Set("cnpj", cnpj)
	switch role {
	case RoleDestination:
		form.Set("tipoPessoa", p.destinationCode())
	case RoleCarrier:
		form.Set("tipoPessoa", p.carrierCode())
	case RoleStorer:
		form.Set("tipoPessoa", p.carrierCode())
		form.Set("armazenador", "S")
		form.Set("codigoUnidade", "")
	}
	return form
}

func (p PartnerSpec) action() string {
	if p.Action != "" {
		return p.Action
	}
	return "pesquisarParceiro"
}

func (p PartnerSpec) carrierCode() string {
	if p.CarrierCode != "" {
		return p.CarrierCode
	}
	return TipoPessoaCarrier
}

func (p PartnerSpec) destinationCode() string {
	if p.DestinationCode != "" {
		return p.DestinationCode
	}
	return TipoPessoaDestination
}

// rawTextPrefixLen bounds Diagnostic.RawTextPrefix
const rawTextPrefixLen = 500

// Diagnostic is returned in place of a partner record when the upstream
// answers with something that is not JSON (usually an HTML error page).
type Diagnostic struct {
	OK            bool   `json:"ok"`
	Status        int    `json:"status"`
	ContentType   string `json:"contentType"`
	RawTextPrefix string `json:"rawTextPrefix"`
}

func newDiagnostic(resp *Response) Diagnostic {
	return Diagnostic{
		OK:            false,
		Status:        resp.Status,
		ContentType:   resp.ContentType,
		RawTextPrefix: truncate(string(resp.Body), rawTextPrefixLen),
	}
}

func transportDiagnostic(err error) Diagnostic {
	return Diagnostic{
		OK:            false,
		Status:        0,
		RawTextPrefix: truncate(err.Error(), rawTextPrefixLen),
	}
}
