package handlers

import (
	"net/http"

	"campus-hub/internal/database"
	"campus-hub/internal/middleware"
	"campus-hub/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) IndexPage(c *gin.Context) {
	if _, ok := middleware.CurrentUser(c); ok {
		c.Redirect(http.StatusFound, "/assets")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (h *Handlers) ShowRegister(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", nil)
}

type registerForm struct {
	Email       string `form:"email"`
	Password    string `form:"password"`
	DisplayName string `form:"display_name"`
}

// Register creates a collaborator account and signs it straight in.
func (h *Handlers) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "register.html", gin.H{"error": "Invalid form data"})
		return
	}

	user, err := database.CreateUser(c.Request.Context(), form.Email, form.Password, form.DisplayName, models.RoleCollaborator)
	if err != nil {
		h.logInternal(c, "failed to register user", err)
		h.render(c, errorStatus(err), "register.html", gin.H{
			"error": userMessage(err),
			"form":  form,
		})
		return
	}

	database.CreateAuditLog(c.Request.Context(), user.ID, "user", userEntityID(user), "create", "Registered: "+user.Email)

	startSession(c, user)
	c.Redirect(http.StatusFound, "/assets")
}

func (h *Handlers) ShowLogin(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", nil)
}

type loginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (h *Handlers) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "login.html", gin.H{"error": "Invalid form data"})
		return
	}

	user, err := database.Authenticate(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		h.logInternal(c, "failed to sign in", err)
		h.render(c, errorStatus(err), "login.html", gin.H{
			"error": userMessage(err),
			"email": form.Email,
		})
		return
	}

	startSession(c, user)
	c.Redirect(http.StatusFound, "/assets")
}

func (h *Handlers) Logout(c *gin.Context) {
	sess := sessions.Default(c)
	sess.Clear()
	sess.Options(sessions.Options{Path: "/", MaxAge: -1})
	_ = sess.Save()
	c.Redirect(http.StatusFound, "/login")
}

func startSession(c *gin.Context, user models.User) {
	sess := sessions.Default(c)
	sess.Set(middleware.SessionUserKey, user.ID)
	_ = sess.Save()
}
