package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"campus-hub/internal/database"
	"campus-hub/internal/live"
	"campus-hub/internal/middleware"
	"campus-hub/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListLogs(c *gin.Context) {
	ctx := c.Request.Context()
	filter := database.LogFilter{
		Type:           models.LogType(c.Query("type")),
		RelatedAssetID: c.Query("asset"),
	}

	logs, err := database.ListLogs(ctx, filter)
	if err != nil {
		h.logInternal(c, "failed to list logs", err)
		c.String(http.StatusInternalServerError, "Could not load logs")
		return
	}
	names, err := assetNames(c)
	if err != nil {
		h.logInternal(c, "failed to list assets", err)
		c.String(http.StatusInternalServerError, "Could not load assets")
		return
	}

	h.render(c, http.StatusOK, "logs_list.html", gin.H{
		"logs":       logs,
		"filter":     filter,
		"types":      models.LogTypes,
		"assetNames": names,
	})
}

func (h *Handlers) ShowNewLog(c *gin.Context) {
	entry := models.Log{
		Type:           models.LogType(c.Query("type")),
		RelatedAssetID: c.Query("asset"),
	}
	if entry.Type == "" {
		entry.Type = models.LogMaintenance
	}
	if u, ok := middleware.CurrentUser(c); ok {
		entry.TeamMember = u.Name()
	}
	h.renderLogForm(c, http.StatusOK, entry, true, "")
}

func (h *Handlers) CreateLog(c *gin.Context) {
	entry := logFromForm(c)
	entry.ID = ""
	h.saveLogForm(c, entry, true)
}

func (h *Handlers) ShowEditLog(c *gin.Context) {
	entry, err := database.GetLog(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logInternal(c, "failed to load log", err)
		c.String(errorStatus(err), "Log not found")
		return
	}
	h.renderLogForm(c, http.StatusOK, entry, false, "")
}

func (h *Handlers) UpdateLog(c *gin.Context) {
	entry := logFromForm(c)
	entry.ID = c.Param("id")
	h.saveLogForm(c, entry, false)
}

func (h *Handlers) saveLogForm(c *gin.Context, entry models.Log, isNew bool) {
	ctx := c.Request.Context()
	defaultTeamMember(c, &entry)

	created, err := database.SaveLog(ctx, &entry)
	if err != nil {
		h.logInternal(c, "failed to save log", err)
		h.renderLogForm(c, errorStatus(err), entry, isNew, userMessage(err))
		return
	}

	action := "update"
	if created {
		action = "create"
	}
	database.CreateAuditLog(ctx, actorID(c), "log", entry.ID, action, string(entry.Type)+" log: "+truncate(entry.Description, 80))
	h.published(live.CollectionLogs, created, entry)

	c.Redirect(http.StatusFound, "/logs")
}

func (h *Handlers) renderLogForm(c *gin.Context, status int, entry models.Log, isNew bool, msg string) {
	assets, err := database.ListAssets(c.Request.Context(), database.AssetFilter{})
	if err != nil {
		h.logInternal(c, "failed to list assets", err)
	}

	h.render(c, status, "log_form.html", gin.H{
		"log":          entry,
		"isNew":        isNew,
		"types":        models.LogTypes,
		"assets":       assets,
		"unknownAsset": unknownAsset(entry.RelatedAssetID, assets),
		"feeding":      feedingRows(entry),
		"error":        msg,
	})
}

// unknownAsset returns id when it names no listed asset, so the form can
// still offer it and a re-save keeps the reference.
func unknownAsset(id string, assets []models.Asset) string {
	if id == "" {
		return ""
	}
	for _, a := range assets {
		if a.ID == id {
			return ""
		}
	}
	return id
}

// logFromForm reads the log form including the feeding sub-form, which
// posts parallel feed_animal / feed_amount arrays.
func logFromForm(c *gin.Context) models.Log {
	entry := models.Log{
		Type:           models.LogType(c.PostForm("type")),
		Description:    c.PostForm("description"),
		RelatedAssetID: c.PostForm("related_asset_id"),
		TeamMember:     c.PostForm("team_member"),
	}

	animals := c.PostFormArray("feed_animal")
	amounts := c.PostFormArray("feed_amount")
	if len(animals) > 0 {
		feeding := make(map[string]interface{}, len(animals))
		for i, animal := range animals {
			animal = strings.TrimSpace(animal)
			if animal == "" {
				continue
			}
			amount := ""
			if i < len(amounts) {
				amount = amounts[i]
			}
			feeding[animal] = amount
		}
		entry.FeedingData = feeding
	}
	return entry
}

type feedingRow struct {
	Animal string
	Amount string
}

const blankFeedingRows = 3

// feedingRows lays feeding data out for the sub-form, followed by a few
// blank rows for more animals.
func feedingRows(entry models.Log) []feedingRow {
	rows := make([]feedingRow, 0, len(entry.FeedingData)+blankFeedingRows)
	for animal, amount := range entry.FeedingData {
		s, ok := amount.(string)
		if !ok && amount != nil {
			s = fmt.Sprint(amount)
		}
		rows = append(rows, feedingRow{Animal: animal, Amount: s})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Animal < rows[j].Animal })
	for i := 0; i < blankFeedingRows; i++ {
		rows = append(rows, feedingRow{})
	}
	return rows
}

func defaultTeamMember(c *gin.Context, entry *models.Log) {
	if strings.TrimSpace(entry.TeamMember) != "" {
		return
	}
	if u, ok := middleware.CurrentUser(c); ok {
		entry.TeamMember = u.Name()
	}
}

func assetNames(c *gin.Context) (map[string]string, error) {
	assets, err := database.ListAssets(c.Request.Context(), database.AssetFilter{})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(assets))
	for _, a := range assets {
		names[a.ID] = a.Name
	}
	return names, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
