package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pos_backend/internal/service"
)

type TransactionHandler struct {
	logger zerolog.Logger
	ledger *service.LedgerService
}

func NewTransactionHandler(logger zerolog.Logger, ledger *service.LedgerService) *TransactionHandler {
	return &TransactionHandler{
		logger: logger,
		ledger: ledger,
	}
}

func (h *TransactionHandler) List(c *gin.Context) {
	sales, err := h.ledger.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	sale, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
