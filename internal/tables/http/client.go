package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpapi "github.com/kivabase/kivabase-backend/internal/api/http"
	"github.com/kivabase/kivabase-backend/internal/tables/domain"
	"github.com/kivabase/kivabase-backend/internal/tables/service"
)

// ClientHandler serves the key-scoped row CRUD surface. It shares the
// engine with the admin handler: capability was already enforced at
// the gate, and the contract below it is identical.
type ClientHandler struct {
	engine *service.Engine
}

func NewClientHandler(engine *service.Engine) *ClientHandler {
	return &ClientHandler{engine: engine}
}

func (h *ClientHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/tables/:tableName/rows", h.listRows)
	rg.POST("/tables/:tableName/rows", h.insertRow)
	rg.PUT("/tables/:tableName/rows/:rowId", h.updateRow)
	rg.DELETE("/tables/:tableName/rows/:rowId", h.deleteRow)
}

func (h *ClientHandler) resolve(c *gin.Context) (projectID, tableID string, ok bool) {
	projectID = c.Param("projectId")
	tableID, err := h.engine.ResolveTableID(c.Request.Context(), projectID, c.Param("tableName"))
	if err != nil {
		httpapi.Error(c, err)
		return "", "", false
	}
	return projectID, tableID, true
}

func (h *ClientHandler) listRows(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	rows, err := h.engine.ListRows(c.Request.Context(), projectID, tableID, queryInt(c, "limit"), queryInt(c, "offset"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ClientHandler) insertRow(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	var fields domain.Row
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	row, err := h.engine.InsertRow(c.Request.Context(), projectID, tableID, fields)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *ClientHandler) updateRow(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	var patch domain.Row
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	row, err := h.engine.UpdateRow(c.Request.Context(), projectID, tableID, c.Param("rowId"), patch)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *ClientHandler) deleteRow(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	if err := h.engine.DeleteRow(c.Request.Context(), projectID, tableID, c.Param("rowId")); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
