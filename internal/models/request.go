package models

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/nexconsult/mtr-api/internal/utils"
)

// FlexString aceita string ou número no JSON de entrada (os clientes enviam
// códigos de unidade e de manifesto nos dois formatos)
type FlexString string

// UnmarshalJSON implementa json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String retorna o valor como string
func (f FlexString) String() string { return string(f) }

// FEAMManifestRequest representa a consulta de manifesto na FEAM (MG)
// @Description Credenciais e código de barras do manifesto FEAM
type FEAMManifestRequest struct {
	CNPJ string `json:"cnpj" binding:"required" example:"12345678000190"`
	// CPF do usuário; quando omitido usa FEAM_REQUESTER_CPF
	CPF            string     `json:"cpf" example:"12345678900"`
	Senha          string     `json:"senha" binding:"required" example:"segredo"`
	UnidadeGerador FlexString `json:"unidadeGerador" binding:"required" swaggertype:"string" example:"12345"`
	CodigoDeBarras string     `json:"codigoDeBarras" binding:"required" example:"2024000123456"`
}

// Credentials converte para credenciais do adaptador
func (r FEAMManifestRequest) Credentials() upstream.Credentials {
	return upstream.Credentials{CNPJ: r.CNPJ, CPF: r.CPF, Password: r.Senha, UnitCode: r.UnidadeGerador.String()}
}

// Query converte para a consulta do adaptador
func (r FEAMManifestRequest) Query() upstream.ManifestQuery {
	return upstream.ManifestQuery{Barcode: r.CodigoDeBarras, GeneratorUnit: r.UnidadeGerador.String()}
}

// SEMADManifestRequest representa a consulta de manifesto na SEMAD (GO)
type SEMADManifestRequest struct {
	PessoaCodigo FlexString `json:"pessoaCodigo" binding:"required" swaggertype:"string" example:"98765"`
	CNPJ         string     `json:"cnpj" binding:"required" example:"12345678000190"`
	CPF          string     `json:"cpf" binding:"required" example:"12345678900"`
	Senha        string     `json:"senha" binding:"required" example:"segredo"`
	CodigoBarras string     `json:"codigoBarras" binding:"required" example:"2024000123456"`
}

// Credentials converte para credenciais do adaptador
func (r SEMADManifestRequest) Credentials() upstream.Credentials {
	return upstream.Credentials{CNPJ: r.CNPJ, CPF: r.CPF, Password: r.Senha, UnitCode: r.PessoaCodigo.String()}
}

// Query converte para a consulta do adaptador
func (r SEMADManifestRequest) Query() upstream.ManifestQuery {
	return upstream.ManifestQuery{Barcode: r.CodigoBarras}
}

// SinirManifestRequest atende SINIR, SIGOR e o agente genérico MTR
type SinirManifestRequest struct {
	CpfCnpj         string     `json:"cpfCnpj" binding:"required" example:"12345678000190"`
	Senha           string     `json:"senha" binding:"required" example:"segredo"`
	Unidade         FlexString `json:"unidade" binding:"required" swaggertype:"string" example:"4321"`
	ManifestoNumero FlexString `json:"manifestoNumero" binding:"required" swaggertype:"string" example:"240012345678"`
}

// Credentials converte para credenciais do adaptador
func (r SinirManifestRequest) Credentials() upstream.Credentials {
	return upstream.Credentials{CNPJ: r.CpfCnpj, Password: r.Senha, UnitCode: r.Unidade.String()}
}

// Query converte para a consulta do adaptador
func (r SinirManifestRequest) Query() upstream.ManifestQuery {
	return upstream.ManifestQuery{Barcode: r.ManifestoNumero.String()}
}

// FEPAMManifestRequest representa a consulta de manifesto na FEPAM (RS)
type FEPAMManifestRequest struct {
	CPF             string     `json:"cpf" binding:"required" example:"12345678900"`
	CNPJ            string     `json:"cnpj" binding:"required" example:"12345678000190"`
	Senha           string     `json:"senha" binding:"required" example:"segredo"`
	ManifestoCodigo FlexString `json:"manifestoCodigo" binding:"required" swaggertype:"string" example:"123456"`
}

// Credentials converte para credenciais do adaptador
func (r FEPAMManifestRequest) Credentials() upstream.Credentials {
	return upstream.Credentials{CNPJ: r.CNPJ, CPF: r.CPF, Password: r.Senha}
}

// Query converte para a consulta do adaptador
func (r FEPAMManifestRequest) Query() upstream.ManifestQuery {
	return upstream.ManifestQuery{Barcode: r.ManifestoCodigo.String()}
}

// EmbeddedManifestRequest atende IMA (SC) e INEA (RJ), cujas APIs recebem
// as credenciais no próprio caminho da URL
type EmbeddedManifestRequest struct {
	CPF            string     `json:"cpf" example:"12345678900"`
	CNPJ           string     `json:"cnpj" binding:"required" example:"12345678000190"`
	Senha          string     `json:"senha" binding:"required" example:"segredo"`
	UnidadeGerador FlexString `json:"unidadeGerador" binding:"required" swaggertype:"string" example:"12345"`
	CodigoBarras   string     `json:"codigoBarras" binding:"required" example:"2024000123456"`
}

// Credentials converte para credenciais do adaptador
func (r EmbeddedManifestRequest) Credentials() upstream.Credentials {
	return upstream.Credentials{CNPJ: r.CNPJ, CPF: r.CPF, Password: r.Senha, UnitCode: r.UnidadeGerador.String()}
}

// Query converte para a consulta do adaptador
func (r EmbeddedManifestRequest) Query() upstream.ManifestQuery {
	return upstream.ManifestQuery{Barcode: r.CodigoBarras, GeneratorUnit: r.UnidadeGerador.String()}
}

// Credenciais são as credenciais de portal enviadas pelo cliente
type Credenciais struct {
	CNPJ          string     `json:"cnpj" binding:"required" example:"12345678000190"`
	CPF           string     `json:"cpf" example:"12345678900"`
	Senha         string     `json:"senha" binding:"required" example:"segredo"`
	UnidadeCodigo FlexString `json:"unidadeCodigo" swaggertype:"string" example:"12345"`
}

// Credentials converte para credenciais do adaptador
func (c *Credenciais) Credentials() upstream.Credentials {
	if c == nil {
		return upstream.Credentials{}
	}
	return upstream.Credentials{CNPJ: c.CNPJ, CPF: c.CPF, Password: c.Senha, UnitCode: c.UnidadeCodigo.String()}
}

// PartnerSearchRequest representa a pesquisa de parceiro
// @Description tipoParceiro: destinador, transportador ou armazenador
type PartnerSearchRequest struct {
	CNPJ         string `json:"cnpj" binding:"required" example:"12345678000190"`
	TipoParceiro string `json:"tipoParceiro" binding:"required" example:"transportador"`
	// Opcional; sem credenciais usa a conta de serviço configurada
	Credenciais *Credenciais `json:"credenciais,omitempty"`
}

// Query converte para a consulta do adaptador
func (r PartnerSearchRequest) Query() upstream.PartnerQuery {
	return upstream.PartnerQuery{CNPJ: utils.CleanCNPJ(r.CNPJ), Role: r.TipoParceiro}
}

// DMRListRequest representa a listagem paginada de declarações
type DMRListRequest struct {
	Credenciais Credenciais `json:"credenciais" binding:"required"`
	Start       int         `json:"start" binding:"min=0" example:"0"`
	Length      int         `json:"length" binding:"min=0,max=500" example:"10"`
	Search      string      `json:"search" example:""`
	Draw        int         `json:"draw" example:"1"`
}

// Page converte para a página do adaptador
func (r DMRListRequest) Page() upstream.DeclarationPage {
	return upstream.DeclarationPage{Start: r.Start, Length: r.Length, Search: r.Search, Draw: r.Draw}
}

// DMRFilterRequest representa o filtro de declarações por período
type DMRFilterRequest struct {
	Credenciais Credenciais `json:"credenciais" binding:"required"`
	DataInicial string      `json:"dataInicial" binding:"required" example:"01/01/2025"`
	DataFinal   string      `json:"dataFinal" binding:"required" example:"30/06/2025"`
}

// Range converte para o período do adaptador
func (r DMRFilterRequest) Range() upstream.DateRange {
	return upstream.DateRange{Start: r.DataInicial, End: r.DataFinal}
}

// DMRUpdateItemsRequest representa a atualização de itens declarados
type DMRUpdateItemsRequest struct {
	Credenciais      Credenciais     `json:"credenciais" binding:"required"`
	DeclaracaoCodigo FlexString      `json:"declaracaoCodigo" binding:"required" swaggertype:"string" example:"5555"`
	Itens            json.RawMessage `json:"itens" binding:"required" swaggertype:"object"`
}

// DMRDeclarationRequest representa a consulta de uma declaração
type DMRDeclarationRequest struct {
	Credenciais      Credenciais `json:"credenciais" binding:"required"`
	DeclaracaoCodigo FlexString  `json:"declaracaoCodigo" binding:"required" swaggertype:"string" example:"5555"`
}
