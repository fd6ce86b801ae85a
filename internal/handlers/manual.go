package handlers

import (
	"net/http"

	"campus-hub/internal/database"
	"campus-hub/internal/manual"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) loadManual(c *gin.Context) ([]manual.Chapter, error) {
	assets, err := database.ListAssets(c.Request.Context(), database.AssetFilter{})
	if err != nil {
		return nil, err
	}
	return manual.Build(h.Taxonomy, assets), nil
}

func (h *Handlers) ShowManual(c *gin.Context) {
	chapters, err := h.loadManual(c)
	if err != nil {
		h.logInternal(c, "failed to build manual", err)
		c.String(http.StatusInternalServerError, "Could not load the manual")
		return
	}

	h.render(c, http.StatusOK, "manual.html", gin.H{
		"chapters": chapters,
	})
}
