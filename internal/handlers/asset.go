package handlers

import (
	"net/http"
	"strings"

	"campus-hub/internal/database"
	"campus-hub/internal/live"
	"campus-hub/internal/models"

	"github.com/gin-gonic/gin"
)

const assetDetailLogLimit = 20

func (h *Handlers) ListAssets(c *gin.Context) {
	filter := database.AssetFilter{
		MainCategory: c.Query("main"),
		Status:       models.AssetStatus(c.Query("status")),
	}

	assets, err := database.ListAssets(c.Request.Context(), filter)
	if err != nil {
		h.logInternal(c, "failed to list assets", err)
		c.String(http.StatusInternalServerError, "Could not load assets")
		return
	}

	h.render(c, http.StatusOK, "assets_list.html", gin.H{
		"assets":   assets,
		"filter":   filter,
		"taxonomy": h.Taxonomy,
		"statuses": models.AssetStatuses,
	})
}

func (h *Handlers) ShowAsset(c *gin.Context) {
	ctx := c.Request.Context()
	asset, err := database.GetAsset(ctx, c.Param("id"))
	if err != nil {
		h.logInternal(c, "failed to load asset", err)
		c.String(errorStatus(err), "Asset not found")
		return
	}

	logs, err := database.ListLogs(ctx, database.LogFilter{RelatedAssetID: asset.ID, Limit: assetDetailLogLimit})
	if err != nil {
		h.logInternal(c, "failed to load asset logs", err)
		c.String(http.StatusInternalServerError, "Could not load logs")
		return
	}

	h.render(c, http.StatusOK, "asset_detail.html", gin.H{
		"asset": asset,
		"logs":  logs,
	})
}

func (h *Handlers) ShowNewAsset(c *gin.Context) {
	h.renderAssetForm(c, http.StatusOK, models.Asset{
		MainCategory: c.Query("main"),
		Status:       models.StatusActive,
	}, true, "")
}

func (h *Handlers) CreateAsset(c *gin.Context) {
	asset := assetFromForm(c)
	asset.ID = ""
	h.saveAssetForm(c, asset, true)
}

func (h *Handlers) ShowEditAsset(c *gin.Context) {
	asset, err := database.GetAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logInternal(c, "failed to load asset", err)
		c.String(errorStatus(err), "Asset not found")
		return
	}
	h.renderAssetForm(c, http.StatusOK, asset, false, "")
}

func (h *Handlers) UpdateAsset(c *gin.Context) {
	asset := assetFromForm(c)
	asset.ID = c.Param("id")
	h.saveAssetForm(c, asset, false)
}

func (h *Handlers) DeleteAsset(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	asset, err := database.GetAsset(ctx, id)
	if err == nil {
		err = database.DeleteAsset(ctx, id)
	}
	if err != nil {
		h.logInternal(c, "failed to delete asset", err)
		c.String(errorStatus(err), userMessage(err))
		return
	}

	database.CreateAuditLog(ctx, actorID(c), "asset", id, "delete", "Deleted asset: "+asset.Name)
	h.removed(live.CollectionAssets, asset)

	c.Redirect(http.StatusFound, "/assets")
}

func (h *Handlers) saveAssetForm(c *gin.Context, asset models.Asset, isNew bool) {
	ctx := c.Request.Context()
	created, err := database.SaveAsset(ctx, &asset)
	if err != nil {
		h.logInternal(c, "failed to save asset", err)
		h.renderAssetForm(c, errorStatus(err), asset, isNew, userMessage(err))
		return
	}

	action, verb := "update", "Updated"
	if created {
		action, verb = "create", "Created"
	}
	database.CreateAuditLog(ctx, actorID(c), "asset", asset.ID, action, verb+" asset: "+asset.Name)
	h.published(live.CollectionAssets, created, asset)

	c.Redirect(http.StatusFound, "/assets/"+asset.ID)
}

func (h *Handlers) renderAssetForm(c *gin.Context, status int, asset models.Asset, isNew bool, msg string) {
	h.render(c, status, "asset_form.html", gin.H{
		"asset":    asset,
		"isNew":    isNew,
		"taxonomy": h.Taxonomy,
		"statuses": models.AssetStatuses,
		"error":    msg,
	})
}

// assetFromForm reads the asset form. The sub category select submits
// "Main/Sub" so one control can cover the whole taxonomy; a bare sub
// category is accepted too.
func assetFromForm(c *gin.Context) models.Asset {
	main := strings.TrimSpace(c.PostForm("main_category"))
	sub := strings.TrimSpace(c.PostForm("sub_category"))
	if m, s, ok := strings.Cut(sub, "/"); ok {
		if main == "" {
			main = m
		}
		if m == main {
			sub = s
		}
	}

	return models.Asset{
		Name:         c.PostForm("name"),
		MainCategory: main,
		SubCategory:  sub,
		Specs:        c.PostForm("specs"),
		SOP:          c.PostForm("sop"),
		Education:    c.PostForm("education"),
		Status:       models.AssetStatus(c.PostForm("status")),
		Location:     c.PostForm("location"),
	}
}
