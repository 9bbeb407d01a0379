package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/kivabase/kivabase-backend/internal/api/http"
	"github.com/kivabase/kivabase-backend/internal/authusers/domain"
	"github.com/kivabase/kivabase-backend/internal/authusers/service"
)

// AdminHandler serves the dashboard view of a project's end-users.
type AdminHandler struct {
	svc *service.Service
}

func NewAdminHandler(svc *service.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.DELETE("/:userId", h.delete)
}

// userView never carries the credential.
type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toView(u domain.AuthUser) userView {
	return userView{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (h *AdminHandler) list(c *gin.Context) {
	users, err := h.svc.List(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, toView(u))
	}
	c.JSON(http.StatusOK, out)
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AdminHandler) create(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	u, err := h.svc.Create(c.Request.Context(), c.Param("projectId"), req.Email, req.Password)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, toView(*u))
}

func (h *AdminHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("projectId"), c.Param("userId")); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ClientHandler serves signup/login behind the project-key gate.
type ClientHandler struct {
	svc *service.Service
}

func NewClientHandler(svc *service.Service) *ClientHandler {
	return &ClientHandler{svc: svc}
}

func (h *ClientHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/signup", h.signup)
	rg.POST("/auth/login", h.login)
}

func (h *ClientHandler) signup(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	u, token, err := h.svc.Signup(c.Request.Context(), c.Param("projectId"), req.Email, req.Password)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":  gin.H{"id": u.ID, "email": u.Email},
		"token": token,
	})
}

func (h *ClientHandler) login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	u, token, err := h.svc.Login(c.Request.Context(), c.Param("projectId"), req.Email, req.Password)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":  gin.H{"id": u.ID, "email": u.Email},
		"token": token,
	})
}
