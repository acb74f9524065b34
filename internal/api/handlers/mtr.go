package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/models"
	"github.com/nexconsult/mtr-api/internal/services"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/sirupsen/logrus"
)

// MTRHandler handles manifest requests for every agency
type MTRHandler struct {
	mtrService services.MTRServiceInterface
	logger     *logrus.Logger
}

// NewMTRHandler creates a new MTR handler
func NewMTRHandler(mtrService services.MTRServiceInterface, logger *logrus.Logger) *MTRHandler {
	return &MTRHandler{
		mtrService: mtrService,
		logger:     logger,
	}
}

// manifestRequest is what every agency-specific body converts into
type manifestRequest interface {
	Credentials() upstream.Credentials
	Query() upstream.ManifestQuery
}

func (h *MTRHandler) fetch(c *gin.Context, agency string, req manifestRequest) {
	start := time.Now()
	requestID := c.GetString("request_id")
	q := req.Query()

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"agency":     agency,
		"manifest":   q.Barcode,
	}).Info("Processing manifest request")

	result, err := h.mtrService.FetchManifest(c.Request.Context(), agency, req.Credentials(), q)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"agency":     agency,
			"error":      err.Error(),
			"duration":   time.Since(start),
		}).Warn("Manifest request failed")
		writeError(c, h.logger, err)
		return
	}
	writeResult(c, result)
}

// FEAMManifest handles FEAM manifest lookups
// @Summary Retorna manifesto FEAM
// @Description Autentica na FEAM (token + chave) e retorna o manifesto pelo código de barras
// @Tags MTR
// @Accept json
// @Produce json
// @Param request body models.FEAMManifestRequest true "Credenciais e código de barras"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /feam/mtr/retorna-manifesto-codigo-de-barras [post]
func (h *MTRHandler) FEAMManifest(c *gin.Context) {
	var req models.FEAMManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	h.fetch(c, config.AgencyFEAM, req)
}

// SEMADManifest handles SEMAD manifest lookups
// @Summary Retorna manifesto SEMAD
// @Tags MTR
// @Accept json
// @Produce json
// @Param request body models.SEMADManifestRequest true "Credenciais e código de barras"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /semad/mtr/retorna-manifesto [post]
func (h *MTRHandler) SEMADManifest(c *gin.Context) {
	var req models.SEMADManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	h.fetch(c, config.AgencySEMAD, req)
}

// SinirFamilyManifest returns the handler for a SINIR-protocol agency
// (SINIR, SIGOR, MTR)
// @Summary Retorna manifesto SINIR/SIGOR/MTR
// @Tags MTR
// @Accept json
// @Produce json
// @Param request body models.SinirManifestRequest true "Credenciais e número do manifesto"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /sinir/mtr/retorna-manifesto [post]
// @Router /sigor/mtr/retorna-manifesto [post]
// @Router /mtr/retorna-manifesto [post]
func (h *MTRHandler) SinirFamilyManifest(agency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SinirManifestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, h.logger, err)
			return
		}
		h.fetch(c, agency, req)
	}
}

// FEPAMManifest handles FEPAM manifest lookups
// @Summary Retorna manifesto FEPAM
// @Tags MTR
// @Accept json
// @Produce json
// @Param request body models.FEPAMManifestRequest true "Credenciais e código do manifesto"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /fepam/mtr/retorna-manifesto [post]
func (h *MTRHandler) FEPAMManifest(c *gin.Context) {
	var req models.FEPAMManifestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	h.fetch(c, config.AgencyFEPAM, req)
}

// EmbeddedManifest returns the handler for IMA and INEA
// @Summary Retorna manifesto IMA/INEA
// @Tags MTR
// @Accept json
// @Produce json
// @Param request body models.EmbeddedManifestRequest true "Credenciais, unidade e código de barras"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /ima/mtr/retorna-manifesto [post]
// @Router /inea/mtr/retorna-manifesto [post]
func (h *MTRHandler) EmbeddedManifest(agency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EmbeddedManifestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, h.logger, err)
			return
		}
		h.fetch(c, agency, req)
	}
}
