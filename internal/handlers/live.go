package handlers

import (
	"net/http"

	"campus-hub/internal/database"
	"campus-hub/internal/live"

	"github.com/gin-gonic/gin"
)

// StreamAssets and StreamLogs are the websocket listeners for the two
// collections.
func (h *Handlers) StreamAssets(c *gin.Context) {
	h.Hub.Serve(c.Writer, c.Request, live.CollectionAssets, func(r *http.Request) (interface{}, error) {
		return database.ListAssets(r.Context(), database.AssetFilter{})
	})
}

func (h *Handlers) StreamLogs(c *gin.Context) {
	h.Hub.Serve(c.Writer, c.Request, live.CollectionLogs, func(r *http.Request) (interface{}, error) {
		return database.ListLogs(r.Context(), database.LogFilter{})
	})
}
