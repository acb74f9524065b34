package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/models"
	"github.com/nexconsult/mtr-api/internal/services"
	"github.com/nexconsult/mtr-api/internal/utils"
	"github.com/sirupsen/logrus"
)

// PartnerHandler handles partner searches
type PartnerHandler struct {
	mtrService services.MTRServiceInterface
	logger     *logrus.Logger
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(mtrService services.MTRServiceInterface, logger *logrus.Logger) *PartnerHandler {
	return &PartnerHandler{
		mtrService: mtrService,
		logger:     logger,
	}
}

// Search returns the partner-search handler for agency
// @Summary Pesquisa parceiro
// @Description Busca destinador, transportador ou armazenador pelo CNPJ. Respostas não-JSON do órgão retornam sucesso=false com um diagnóstico em dados.
// @Tags Parceiro
// @Accept json
// @Produce json
// @Param request body models.PartnerSearchRequest true "CNPJ e tipo do parceiro"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /fepam/parceiro/pesquisar [post]
// @Router /ima/parceiro/pesquisar [post]
// @Router /inea/parceiro/pesquisar [post]
// @Router /semad/parceiro/pesquisar [post]
func (h *PartnerHandler) Search(agency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PartnerSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, h.logger, err)
			return
		}

		fields := logrus.Fields{
			"request_id":    c.GetString("request_id"),
			"agency":        agency,
			"tipo_parceiro": req.TipoParceiro,
			"service_login": req.Credenciais == nil,
		}
		h.logger.WithFields(fields).Info("Processing partner search")

		// portals answer an empty list for a bad check digit
		if !utils.IsValidCNPJ(req.CNPJ) {
			h.logger.WithFields(fields).Warn("Partner CNPJ fails check digit validation")
		}

		result, err := h.mtrService.SearchPartner(c.Request.Context(), agency, req.Credenciais.Credentials(), req.Query())
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		writeResult(c, result)
	}
}
