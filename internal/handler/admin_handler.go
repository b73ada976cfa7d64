package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pos_backend/internal/config"
	"pos_backend/internal/errx"
	"pos_backend/internal/models"
	"pos_backend/internal/service"
)

const adminKeyHeader = "X-ADMIN-KEY"

var ErrDestructiveDisabled = errors.New("destructive operations are disabled")

// AdminGate lets a request through when destructive operations are enabled
// globally or the admin key header matches. An unset ADMIN_KEY matches nothing.
func AdminGate(logger zerolog.Logger, cfg config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AllowDestructive {
			c.Next()
			return
		}

		key := c.GetHeader(adminKeyHeader)
		if cfg.Key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(cfg.Key)) == 1 {
			c.Next()
			return
		}

		logger.Warn().
			Str("path", c.FullPath()).
			Str("client_ip", c.ClientIP()).
			Bool("key_supplied", key != "").
			Msg("destructive request refused")
		respondError(c, errx.New(ErrDestructiveDisabled, http.StatusForbidden,
			"destructive operations are disabled; set ALLOW_DESTRUCTIVE or send a valid "+adminKeyHeader))
	}
}

type AdminHandler struct {
	logger zerolog.Logger
	seed   *service.SeedService
	opts   service.SeedOptions
}

func NewAdminHandler(logger zerolog.Logger, seed *service.SeedService, opts service.SeedOptions) *AdminHandler {
	return &AdminHandler{
		logger: logger,
		seed:   seed,
		opts:   opts,
	}
}

type seedResponse struct {
	Message string `json:"message"`
	models.SeedResult
}

func (h *AdminHandler) ResetSeed(c *gin.Context) {
	result, err := h.seed.Reset(c.Request.Context(), h.opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seedResponse{Message: "reset complete", SeedResult: *result})
}

// InitDB applies the schema first so it also works against an empty database.
func (h *AdminHandler) InitDB(c *gin.Context) {
	if err := h.seed.Migrate(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.seed.Reset(c.Request.Context(), h.opts)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seedResponse{Message: "database initialized", SeedResult: *result})
}
