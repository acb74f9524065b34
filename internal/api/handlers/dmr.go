package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/nexconsult/mtr-api/internal/declaration"
	"github.com/nexconsult/mtr-api/internal/models"
	"github.com/nexconsult/mtr-api/internal/services"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/sirupsen/logrus"
)

// maxDeclarationHTML bounds the raw HTML accepted by the parse route
const maxDeclarationHTML = 5 << 20

// DMRHandler handles FEAM DMR declaration requests
type DMRHandler struct {
	mtrService services.MTRServiceInterface
	logger     *logrus.Logger
}

// NewDMRHandler creates a new DMR handler
func NewDMRHandler(mtrService services.MTRServiceInterface, logger *logrus.Logger) *DMRHandler {
	return &DMRHandler{
		mtrService: mtrService,
		logger:     logger,
	}
}

func (h *DMRHandler) finish(c *gin.Context, action string, start time.Time, result *upstream.Result, err error) {
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"action":     action,
			"error":      err.Error(),
			"duration":   time.Since(start),
		}).Warn("DMR request failed")
		writeError(c, h.logger, err)
		return
	}
	writeResult(c, result)
}

// List handles the paginated declaration listing
// @Summary Lista declarações DMR
// @Description Paginação no estilo datatable; draw é devolvido pelo órgão
// @Tags DMR
// @Accept json
// @Produce json
// @Param request body models.DMRListRequest true "Credenciais e paginação"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /feam/dmr/listar [post]
func (h *DMRHandler) List(c *gin.Context) {
	start := time.Now()
	var req models.DMRListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	result, err := h.mtrService.ListDeclarations(c.Request.Context(), config.AgencyFEAM, req.Credenciais.Credentials(), req.Page())
	h.finish(c, upstream.ActionListDeclarations, start, result, err)
}

// Filter handles the date-range filter
// @Summary Filtra declarações DMR por período
// @Description dados contém o HTML devolvido pelo órgão, sem processamento
// @Tags DMR
// @Accept json
// @Produce json
// @Param request body models.DMRFilterRequest true "Credenciais e período"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /feam/dmr/filtrar [post]
func (h *DMRHandler) Filter(c *gin.Context) {
	start := time.Now()
	var req models.DMRFilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	result, err := h.mtrService.FilterDeclarations(c.Request.Context(), config.AgencyFEAM, req.Credenciais.Credentials(), req.Range())
	h.finish(c, upstream.ActionFilterDeclarations, start, result, err)
}

// UpdateItems forwards a declared-items update
// @Summary Atualiza itens declarados
// @Tags DMR
// @Accept json
// @Produce json
// @Param request body models.DMRUpdateItemsRequest true "Credenciais, declaração e itens"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /feam/dmr/atualizar-itens [post]
func (h *DMRHandler) UpdateItems(c *gin.Context) {
	start := time.Now()
	var req models.DMRUpdateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	result, err := h.mtrService.UpdateDeclaredItems(c.Request.Context(), config.AgencyFEAM, req.Credenciais.Credentials(), req.DeclaracaoCodigo.String(), req.Itens)
	h.finish(c, upstream.ActionUpdateItems, start, result, err)
}

// Declaration fetches and parses one declaration
// @Summary Consulta declaração DMR
// @Description Baixa a página da declaração e devolve o registro estruturado
// @Tags DMR
// @Accept json
// @Produce json
// @Param request body models.DMRDeclarationRequest true "Credenciais e código da declaração"
// @Success 200 {object} models.GatewayResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /feam/dmr/declaracao [post]
func (h *DMRHandler) Declaration(c *gin.Context) {
	start := time.Now()
	var req models.DMRDeclarationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	result, err := h.mtrService.FetchDeclaration(c.Request.Context(), config.AgencyFEAM, req.Credenciais.Credentials(), req.DeclaracaoCodigo.String())
	h.finish(c, upstream.ActionDeclaration, start, result, err)
}

// Parse parses a declaration page posted as raw HTML
// @Summary Converte HTML de declaração
// @Tags DMR
// @Accept html
// @Produce json
// @Param html body string true "HTML da página da declaração"
// @Success 200 {object} declaration.Record
// @Failure 400 {object} models.ErrorResponse
// @Router /dmr/parse [post]
func (h *DMRHandler) Parse(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDeclarationHTML))
	if err != nil {
		writeBindError(c, h.logger, err)
		return
	}
	if strings.TrimSpace(string(body)) == "" {
		writeError(c, h.logger, upstream.InvalidRequest("", "parse", "request body must contain the declaration HTML"))
		return
	}

	record, err := declaration.Parse(string(body))
	if err != nil {
		writeBindError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"request_id":  c.GetString("request_id"),
		"waste_items": len(record.WasteItems),
	}).Debug("Declaration parsed")

	c.JSON(http.StatusOK, record)
}
