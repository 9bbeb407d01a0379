package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpapi "github.com/kivabase/kivabase-backend/internal/api/http"
	"github.com/kivabase/kivabase-backend/internal/tables/domain"
	"github.com/kivabase/kivabase-backend/internal/tables/service"
)

// AdminHandler serves the dashboard table surface: table lifecycle,
// column migrations and row CRUD, all addressed by table name within
// the project.
type AdminHandler struct {
	engine *service.Engine
}

func NewAdminHandler(engine *service.Engine) *AdminHandler {
	return &AdminHandler{engine: engine}
}

func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
	rg.POST("", h.create)
	rg.GET("/:tableName", h.get)
	rg.DELETE("/:tableName", h.drop)

	rg.POST("/:tableName/columns", h.addColumn)
	rg.PUT("/:tableName/columns/:columnName", h.alterColumn)
	rg.DELETE("/:tableName/columns/:columnName", h.deleteColumn)

	rg.GET("/:tableName/rows", h.listRows)
	rg.POST("/:tableName/rows", h.insertRow)
	rg.PUT("/:tableName/rows/:rowId", h.updateRow)
	rg.DELETE("/:tableName/rows/:rowId", h.deleteRow)
}

// resolve maps the path's table name to its id within the project.
func (h *AdminHandler) resolve(c *gin.Context) (projectID, tableID string, ok bool) {
	projectID = c.Param("projectId")
	tableID, err := h.engine.ResolveTableID(c.Request.Context(), projectID, c.Param("tableName"))
	if err != nil {
		httpapi.Error(c, err)
		return "", "", false
	}
	return projectID, tableID, true
}

func (h *AdminHandler) list(c *gin.Context) {
	tables, err := h.engine.ListTables(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

type createTableReq struct {
	Name string `json:"name"`
}

func (h *AdminHandler) create(c *gin.Context) {
	var req createTableReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	t, err := h.engine.CreateTable(c.Request.Context(), c.Param("projectId"), req.Name)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *AdminHandler) get(c *gin.Context) {
	t, err := h.engine.GetTableByName(c.Request.Context(), c.Param("projectId"), c.Param("tableName"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *AdminHandler) drop(c *gin.Context) {
	if err := h.engine.DropTable(c.Request.Context(), c.Param("projectId"), c.Param("tableName")); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type addColumnReq struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *AdminHandler) addColumn(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	var req addColumnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	t, err := h.engine.AddColumn(c.Request.Context(), projectID, tableID, req.Name, req.Type)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

type alterColumnReq struct {
	NewName string `json:"newName"`
	NewType string `json:"newType"`
}

func (h *AdminHandler) alterColumn(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	var req alterColumnReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	t, err := h.engine.AlterColumn(c.Request.Context(), projectID, tableID, c.Param("columnName"), req.NewName, req.NewType)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *AdminHandler) deleteColumn(c *gin.Context) {
	projectID, tableID, ok := h.resolve(c)
	if !ok {
		return
	}

	t, err := h.engine.DeleteColumn(c.Request.Context(), projectID, tableID, c.Param("columnName"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *AdminHandler) listRows(c *gin.Context) {
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

func (h *AdminHandler) insertRow(c *gin.Context) {
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

func (h *AdminHandler) updateRow(c *gin.Context) {
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

func (h *AdminHandler) deleteRow(c *gin.Context) {
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

func queryInt(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
