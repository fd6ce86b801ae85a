package middleware

import (
	"strings"

	"campus-hub/internal/auth"
	"campus-hub/internal/database"
	"campus-hub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	currentUserKey = "CurrentUser"
	SessionUserKey = "user_id"
)

// InjectUser resolves the caller from a bearer token or, failing that, the
// session cookie, and stores the loaded user on the context.
func InjectUser(tokens *auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := bearerUserID(c, tokens); ok {
			if user, err := database.GetUser(c.Request.Context(), uid); err == nil {
				c.Set(currentUserKey, user)
			}
			c.Next()
			return
		}

		sess := sessions.Default(c)
		if uid, ok := sess.Get(SessionUserKey).(uint); ok && uid > 0 {
			if user, err := database.GetUser(c.Request.Context(), uid); err == nil {
				c.Set(currentUserKey, user)
			}
		}

		c.Next()
	}
}

func bearerUserID(c *gin.Context, tokens *auth.Tokens) (uint, bool) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokens == nil {
		return 0, false
	}
	claims, err := tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return claims.UserID, true
}

// CurrentUser returns the user InjectUser attached, if any.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
