package handlers

import (
	"net/http"
	"strconv"

	"campus-hub/internal/database"
	"campus-hub/internal/models"

	"github.com/gin-gonic/gin"
)

const auditPageSize = 200

func (h *Handlers) ListAuditLogs(c *gin.Context) {
	logs, err := database.ListAuditLogs(c.Request.Context(), auditPageSize)
	if err != nil {
		h.logInternal(c, "failed to list audit logs", err)
		c.String(http.StatusInternalServerError, "Could not load audit log")
		return
	}

	h.render(c, http.StatusOK, "audit_list.html", gin.H{
		"logs": logs,
	})
}

func userEntityID(u models.User) string {
	return strconv.FormatUint(uint64(u.ID), 10)
}
