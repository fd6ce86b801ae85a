package handlers

import (
	"net/http"
	"time"

	"campus-hub/internal/database"
	"campus-hub/internal/live"
	"campus-hub/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) apiError(c *gin.Context, msg string, err error) {
	h.logInternal(c, msg, err)
	c.JSON(errorStatus(err), gin.H{"error": userMessage(err)})
}

func writeStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// IssueToken trades email and password for a bearer token.
func (h *Handlers) IssueToken(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := database.Authenticate(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.apiError(c, "failed to authenticate", err)
		return
	}

	token, exp, err := h.Tokens.Issue(user)
	if err != nil {
		h.apiError(c, "failed to issue token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": exp.UTC().Format(time.RFC3339),
		"user":      user,
	})
}

func (h *Handlers) APIListAssets(c *gin.Context) {
	assets, err := database.ListAssets(c.Request.Context(), database.AssetFilter{
		MainCategory: c.Query("mainCategory"),
		Status:       models.AssetStatus(c.Query("status")),
	})
	if err != nil {
		h.apiError(c, "failed to list assets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

func (h *Handlers) APIGetAsset(c *gin.Context) {
	asset, err := database.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, "failed to load asset", err)
		return
	}
	c.JSON(http.StatusOK, asset)
}

// APISaveAsset handles both POST (id optional, in the body) and PUT (id
// from the path). Either way the document is replaced.
func (h *Handlers) APISaveAsset(c *gin.Context) {
	var asset models.Asset
	if err := c.ShouldBindJSON(&asset); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if id := c.Param("id"); id != "" {
		asset.ID = id
	}

	ctx := c.Request.Context()
	created, err := database.SaveAsset(ctx, &asset)
	if err != nil {
		h.apiError(c, "failed to save asset", err)
		return
	}

	action := "update"
	if created {
		action = "create"
	}
	database.CreateAuditLog(ctx, actorID(c), "asset", asset.ID, action, "API "+action+": "+asset.Name)
	h.published(live.CollectionAssets, created, asset)

	c.JSON(writeStatus(created), asset)
}

func (h *Handlers) APIDeleteAsset(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	asset, err := database.GetAsset(ctx, id)
	if err == nil {
		err = database.DeleteAsset(ctx, id)
	}
	if err != nil {
		h.apiError(c, "failed to delete asset", err)
		return
	}

	database.CreateAuditLog(ctx, actorID(c), "asset", id, "delete", "API delete: "+asset.Name)
	h.removed(live.CollectionAssets, asset)

	c.Status(http.StatusNoContent)
}

func (h *Handlers) APIListLogs(c *gin.Context) {
	logs, err := database.ListLogs(c.Request.Context(), database.LogFilter{
		Type:           models.LogType(c.Query("type")),
		RelatedAssetID: c.Query("relatedAssetId"),
	})
	if err != nil {
		h.apiError(c, "failed to list logs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (h *Handlers) APIGetLog(c *gin.Context) {
	entry, err := database.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.apiError(c, "failed to load log", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handlers) APISaveLog(c *gin.Context) {
	var entry models.Log
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if id := c.Param("id"); id != "" {
		entry.ID = id
	}
	defaultTeamMember(c, &entry)

	ctx := c.Request.Context()
	created, err := database.SaveLog(ctx, &entry)
	if err != nil {
		h.apiError(c, "failed to save log", err)
		return
	}

	action := "update"
	if created {
		action = "create"
	}
	database.CreateAuditLog(ctx, actorID(c), "log", entry.ID, action, "API "+action+": "+string(entry.Type))
	h.published(live.CollectionLogs, created, entry)

	c.JSON(writeStatus(created), entry)
}

func (h *Handlers) APITaxonomy(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": h.Taxonomy.Categories,
		"statuses":   models.AssetStatuses,
		"logTypes":   models.LogTypes,
	})
}

func (h *Handlers) APIManual(c *gin.Context) {
	chapters, err := h.loadManual(c)
	if err != nil {
		h.apiError(c, "failed to build manual", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chapters": chapters})
}
