package server

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"campus-hub/internal/auth"
	"campus-hub/internal/config"
	"campus-hub/internal/handlers"
	"campus-hub/internal/live"
	"campus-hub/internal/metrics"
	"campus-hub/internal/middleware"
	"campus-hub/internal/models"
	"campus-hub/internal/taxonomy"
	"campus-hub/web"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func maskEmail(email string) string {
	runes := []rune(email)
	atIdx := -1
	for i, r := range runes {
		if r == '@' {
			atIdx = i
			break
		}
	}
	if atIdx <= 0 {
		return "***"
	}
	prefix := string(runes[:atIdx])
	domain := string(runes[atIdx:])
	if len(prefix) <= 2 {
		return prefix + "***" + domain
	}
	return string(runes[0:2]) + "***" + domain
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"maskEmail": maskEmail,
		"fmtTime":   fmtTime,
	}).ParseFS(web.Templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// NewRouter wires every route. The database must already be initialised.
func NewRouter(cfg *config.Config, log *zap.Logger) (*gin.Engine, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	m := metrics.New()
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL, cfg.AppID)
	h := &handlers.Handlers{
		AppID:    cfg.AppID,
		Hub:      live.NewHub(log, m.Subscribers),
		Tokens:   tokens,
		Metrics:  m,
		Taxonomy: taxonomy.Default(),
		Log:      log.Named("handlers"),
	}

	r := gin.New()
	r.Use(middleware.Logger(log), middleware.Recovery(log), m.Middleware())
	r.SetHTMLTemplate(tmpl)
	r.StaticFS("/static", http.FS(static))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(cfg.AppID+"_session", store))

	r.Use(middleware.InjectUser(tokens))

	writers := middleware.RequireRole(models.RoleAdmin, models.RoleCollaborator)
	admins := middleware.RequireRole(models.RoleAdmin)

	r.GET("/", h.IndexPage)

	// auth
	r.GET("/register", h.ShowRegister)
	r.POST("/register", h.Register)
	r.GET("/login", h.ShowLogin)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	authed := r.Group("/")
	authed.Use(middleware.RequireAuth())

	// assets
	authed.GET("/assets", h.ListAssets)
	authed.GET("/assets/new", writers, h.ShowNewAsset)
	authed.POST("/assets/new", writers, h.CreateAsset)
	authed.GET("/assets/:id", h.ShowAsset)
	authed.GET("/assets/:id/edit", writers, h.ShowEditAsset)
	authed.POST("/assets/:id/edit", writers, h.UpdateAsset)
	authed.POST("/assets/:id/delete", admins, h.DeleteAsset)

	// logs
	authed.GET("/logs", h.ListLogs)
	authed.GET("/logs/new", writers, h.ShowNewLog)
	authed.POST("/logs/new", writers, h.CreateLog)
	authed.GET("/logs/:id/edit", writers, h.ShowEditLog)
	authed.POST("/logs/:id/edit", writers, h.UpdateLog)

	authed.GET("/manual", h.ShowManual)
	authed.GET("/audit", admins, h.ListAuditLogs)

	// live listeners
	authed.GET("/ws/assets", h.StreamAssets)
	authed.GET("/ws/logs", h.StreamLogs)

	// JSON API
	r.POST("/api/v1/token", h.IssueToken)

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth())
	api.GET("/taxonomy", h.APITaxonomy)
	api.GET("/manual", h.APIManual)

	api.GET("/assets", h.APIListAssets)
	api.POST("/assets", writers, h.APISaveAsset)
	api.GET("/assets/:id", h.APIGetAsset)
	api.PUT("/assets/:id", writers, h.APISaveAsset)
	api.DELETE("/assets/:id", admins, h.APIDeleteAsset)

	api.GET("/logs", h.APIListLogs)
	api.POST("/logs", writers, h.APISaveLog)
	api.GET("/logs/:id", h.APIGetLog)
	api.PUT("/logs/:id", writers, h.APISaveLog)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	return r, nil
}
