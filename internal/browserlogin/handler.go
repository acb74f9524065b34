package browserlogin

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/mtr-api/internal/upstream"
	"github.com/sirupsen/logrus"
)

// Reply codes of the automation protocol
const (
	CodeOK    = 200
	CodeError = 900
)

// Loginer runs a named login flow
type Loginer interface {
	Login(ctx context.Context, name string, creds upstream.Credentials) ([]Cookie, error)
}

// Reply is the automation service response body
type Reply struct {
	Codigo  int      `json:"codigo"`
	Cookies []Cookie `json:"cookies,omitempty"`
	Erro    string   `json:"erro,omitempty"`
}

// Handler exposes flows as GET|POST /<agency>-login
type Handler struct {
	logins Loginer
	logger *logrus.Logger
}

// NewHandler creates the HTTP handler
func NewHandler(logins Loginer, logger *logrus.Logger) *Handler {
	return &Handler{logins: logins, logger: logger}
}

// Register mounts the routes on r
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
	})
	r.GET("/:flow", h.Login)
	r.POST("/:flow", h.Login)
}

// Login handles /<agency>-login?cnpj=&senha=&cpf=&unidadeCodigo=. Form
// values are accepted too for POST.
func (h *Handler) Login(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("flow"), "-login")
	if !ok || name == "" {
		c.JSON(http.StatusNotFound, Reply{Codigo: http.StatusNotFound, Erro: "unknown route"})
		return
	}

	creds := upstream.Credentials{
		CNPJ:     c.Request.FormValue("cnpj"),
		CPF:      c.Request.FormValue("cpf"),
		Password: c.Request.FormValue("senha"),
		UnitCode: c.Request.FormValue("unidadeCodigo"),
	}

	cookies, err := h.logins.Login(c.Request.Context(), name, creds)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"flow":  name,
			"error": err.Error(),
		}).Error("Login flow failed")

		status := http.StatusInternalServerError
		if errors.Is(err, ErrUnknownFlow) {
			status = http.StatusNotFound
		} else if errors.Is(err, ErrMissingCredentials) {
			status = http.StatusBadRequest
		}
		c.JSON(status, Reply{Codigo: CodeError, Erro: err.Error()})
		return
	}

	c.JSON(http.StatusOK, Reply{Codigo: CodeOK, Cookies: cookies})
}
