package models

import (
	"time"

	"github.com/nexconsult/mtr-api/internal/upstream"
)

// GatewayResponse representa a resposta padrão das rotas de órgão
// @Description dados é o payload do órgão repassado sem alteração
type GatewayResponse struct {
	// Indica se a operação foi bem-sucedida
	Sucesso bool `json:"sucesso" example:"true"`
	// Órgão consultado
	Orgao string `json:"orgao,omitempty" example:"FEAM"`
	// Ação executada no órgão
	Acao string `json:"acao,omitempty" example:"retornaManifesto"`
	// Código do motivo quando sucesso=false
	Motivo string `json:"motivo,omitempty" example:"SESSION_INVALID"`
	// Payload do órgão
	Dados interface{} `json:"dados" swaggertype:"object"`
}

// FromResult converte o envelope do adaptador
func FromResult(r *upstream.Result) GatewayResponse {
	resp := GatewayResponse{
		Sucesso: r.Success,
		Orgao:   r.Agency,
		Acao:    r.Action,
		Dados:   r.Data,
	}
	if !r.Success {
		resp.Motivo = r.Reason.Code()
	}
	return resp
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Upstream unavailable"`
	Message string `json:"message" example:"feam retornaManifesto: upstream unavailable (status 503)"`
	Code    string `json:"code,omitempty" example:"UPSTREAM_UNAVAILABLE"`
	// Detalhe legível do erro
	Detail string `json:"detail,omitempty" example:"retornaManifesto returned status 503"`
	Agency string `json:"agency,omitempty" example:"FEAM"`
	// Prefixo do corpo bruto devolvido pelo órgão, para diagnóstico
	UpstreamBody string    `json:"upstream_body,omitempty" example:"{\"erro\":true}"`
	Timestamp    time.Time `json:"timestamp" example:"2025-08-25T17:25:30Z"`
	Path         string    `json:"path" example:"/feam/mtr/retorna-manifesto-codigo-de-barras"`
}

// LivenessResponse representa resposta do health check
type LivenessResponse struct {
	Status    string    `json:"status" example:"ok"`
	Service   string    `json:"service" example:"api-mtr-gateway"`
	Timestamp time.Time `json:"timestamp" example:"2025-08-25T17:25:30Z"`
}

// ReadinessResponse detalha as dependências
type ReadinessResponse struct {
	Status    string                 `json:"status" example:"ready"`
	Service   string                 `json:"service" example:"api-mtr-gateway"`
	Timestamp time.Time              `json:"timestamp" example:"2025-08-25T17:25:30Z"`
	Services  map[string]interface{} `json:"services"`
}

// StatsResponse expõe os contadores de resultado por órgão
type StatsResponse struct {
	Service   string                      `json:"service" example:"api-mtr-gateway"`
	Timestamp time.Time                   `json:"timestamp" example:"2025-08-25T17:25:30Z"`
	Agencies  map[string]map[string]int64 `json:"agencies"`
	RateLimit map[string]interface{}      `json:"rate_limit,omitempty"`
}
