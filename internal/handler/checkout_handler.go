package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pos_backend/internal/models"
	"pos_backend/internal/service"
)

type CheckoutHandler struct {
	logger   zerolog.Logger
	checkout *service.CheckoutService
}

func NewCheckoutHandler(logger zerolog.Logger, checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		logger:   logger,
		checkout: checkout,
	}
}

type CheckoutResponsePayload struct {
	Message       string `json:"message"`
	TransactionID int64  `json:"transaction_id"`
}

// ServeHTTP expects a JSON array of {product_id, quantity}.
func (h *CheckoutHandler) ServeHTTP(c *gin.Context) {
	var cart []models.CartEntry
	if err := c.ShouldBindJSON(&cart); err != nil {
		respondError(c, badRequest("invalid cart format", err))
		return
	}

	id, err := h.checkout.Checkout(c.Request.Context(), cart)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CheckoutResponsePayload{
		Message:       "Checkout successful",
		TransactionID: id,
	})
}
