package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"pos_backend/internal/models"
	"pos_backend/internal/service"
)

type ProductHandler struct {
	logger  zerolog.Logger
	catalog *service.CatalogService
}

func NewProductHandler(logger zerolog.Logger, catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{
		logger:  logger,
		catalog: catalog,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context(), queryFlag(c, "include_deleted"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var in models.NewProduct
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, badRequest("invalid product payload", err))
		return
	}

	p, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Product added", "id": p.ID})
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.Get(c.Request.Context(), id, queryFlag(c, "include_deleted"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update serves both PUT and PATCH; either way only supplied fields change.
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var upd models.ProductUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondError(c, badRequest("invalid product payload", err))
		return
	}

	p, err := h.catalog.Update(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	hard := queryFlag(c, "hard")
	if err := h.catalog.Delete(c.Request.Context(), id, hard); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted", "id": id, "hard": hard})
}
