package handlers

import (
	"campus-hub/internal/middleware"

	"github.com/gin-gonic/gin"
)

// render wraps c.HTML and passes the shell's common values to every page.
func (h *Handlers) render(c *gin.Context, status int, tmpl string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}

	data["AppID"] = h.AppID
	if u, ok := middleware.CurrentUser(c); ok {
		data["CurrentUser"] = u
		data["CurrentUsername"] = u.Name()
		data["CurrentUserRole"] = u.Role
		data["CanWrite"] = u.Role.CanWrite()
		data["IsAdmin"] = isAdmin(c)
	}
	if _, ok := data["error"]; !ok {
		data["error"] = ""
	}

	c.HTML(status, tmpl, data)
}
