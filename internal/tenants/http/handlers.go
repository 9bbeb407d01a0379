package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kivabase/kivabase-backend/internal/accessgate"
	httpapi "github.com/kivabase/kivabase-backend/internal/api/http"
	"github.com/kivabase/kivabase-backend/internal/tenants/domain"
	"github.com/kivabase/kivabase-backend/internal/tenants/service"
)

// Handler serves the admin project endpoints. Every route here runs
// behind the admin gate, so the account id is always on the context.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.DELETE("/:projectId", h.delete)
}

// projectView is the response shape: keys are grouped under apiKeys
// the way the dashboard consumes them.
type projectView struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Created time.Time `json:"created"`
	URL     string    `json:"url"`
	Status  string    `json:"status"`
	APIKeys apiKeys   `json:"apiKeys"`
}

type apiKeys struct {
	Anon    string `json:"anon"`
	Service string `json:"service"`
}

func toView(p domain.Project) projectView {
	return projectView{
		ID:      p.ID,
		Name:    p.Name,
		Created: p.CreatedAt,
		URL:     p.URL,
		Status:  p.Status,
		APIKeys: apiKeys{Anon: p.AnonKey, Service: p.ServiceKey},
	}
}

func (h *Handler) list(c *gin.Context) {
	projects, err := h.svc.List(c.Request.Context(), accessgate.AccountID(c))
	if err != nil {
		httpapi.Error(c, err)
		return
	}

	out := make([]projectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, toView(p))
	}
	c.JSON(http.StatusOK, out)
}

type createReq struct {
	Name string `json:"name"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	p, err := h.svc.Create(c.Request.Context(), accessgate.AccountID(c), req.Name)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, toView(*p))
}

func (h *Handler) delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), accessgate.AccountID(c), c.Param("projectId"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
