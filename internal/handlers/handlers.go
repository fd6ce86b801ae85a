package handlers

import (
	"errors"
	"net/http"

	"campus-hub/internal/auth"
	"campus-hub/internal/database"
	"campus-hub/internal/live"
	"campus-hub/internal/metrics"
	"campus-hub/internal/middleware"
	"campus-hub/internal/models"
	"campus-hub/internal/taxonomy"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers serves both the HTML screens and the JSON API.
type Handlers struct {
	AppID    string
	Hub      *live.Hub
	Tokens   *auth.Tokens
	Metrics  *metrics.Metrics
	Taxonomy *taxonomy.Taxonomy
	Log      *zap.Logger
}

// errorStatus maps store errors onto HTTP statuses.
func errorStatus(err error) int {
	var verr *database.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// userMessage is what a person sees for err; internal failures are not
// spelled out.
func userMessage(err error) string {
	if errorStatus(err) == http.StatusInternalServerError {
		return "Something went wrong while saving. Please try again."
	}
	return err.Error()
}

// published announces a write to live listeners and counts it.
func (h *Handlers) published(collection string, created bool, doc interface{}) {
	kind := live.EventModified
	if created {
		kind = live.EventAdded
	}
	h.Hub.Publish(live.Event{Type: kind, Collection: collection, Doc: doc})
	h.Metrics.Writes.WithLabelValues(collection, string(kind)).Inc()
}

func (h *Handlers) removed(collection string, doc interface{}) {
	h.Hub.Publish(live.Event{Type: live.EventRemoved, Collection: collection, Doc: doc})
	h.Metrics.Writes.WithLabelValues(collection, string(live.EventRemoved)).Inc()
}

func (h *Handlers) logInternal(c *gin.Context, msg string, err error) {
	if errorStatus(err) == http.StatusInternalServerError {
		h.Log.Error(msg, zap.String("path", c.Request.URL.Path), zap.Error(err))
		_ = c.Error(err)
	}
}

func actorID(c *gin.Context) uint {
	if u, ok := middleware.CurrentUser(c); ok {
		return u.ID
	}
	return 0
}

func canWrite(c *gin.Context) bool {
	u, ok := middleware.CurrentUser(c)
	return ok && u.Role.CanWrite()
}

func isAdmin(c *gin.Context) bool {
	u, ok := middleware.CurrentUser(c)
	return ok && u.Role == models.RoleAdmin
}
