package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"validity.app/auditor/internal/http/dto"
	"validity.app/auditor/internal/taxonomy"
)

type TaxonomyHandler struct {
	table *taxonomy.Table
}

func NewTaxonomyHandler(table *taxonomy.Table) *TaxonomyHandler {
	return &TaxonomyHandler{table: table}
}

func (h *TaxonomyHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ToTaxonomyResponse(h.table))
}
