package handlers

import (
	"net/http"

	"github.com/brezcode/brezcode-platform-sub008/internal/catalog"
	"github.com/gin-gonic/gin"
)

type ScenarioHandler struct {
	catalog catalog.Catalog
}

func NewScenarioHandler(cat catalog.Catalog) *ScenarioHandler {
	return &ScenarioHandler{catalog: cat}
}

func (h *ScenarioHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"scenarios": h.catalog.List()})
}

func (h *ScenarioHandler) Get(c *gin.Context) {
	sc, err := h.catalog.Get(c.Param("scenario_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}
