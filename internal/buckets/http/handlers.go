package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	httpapi "github.com/kivabase/kivabase-backend/internal/api/http"
	"github.com/kivabase/kivabase-backend/internal/buckets/service"
)

type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/buckets", h.listBuckets)
	rg.POST("/buckets", h.createBucket)
	rg.DELETE("/buckets/:bucketName", h.deleteBucket)
	rg.GET("/buckets/:bucketName/files", h.listFiles)
	rg.POST("/buckets/:bucketName/files", h.addFile)
	rg.DELETE("/buckets/:bucketName/files/:fileId", h.deleteFile)
}

func (h *Handler) listBuckets(c *gin.Context) {
	out, err := h.svc.ListBuckets(c.Request.Context(), c.Param("projectId"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type createBucketReq struct {
	Name   string `json:"name"`
	Public bool   `json:"public"`
}

func (h *Handler) createBucket(c *gin.Context) {
	var req createBucketReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	b, err := h.svc.CreateBucket(c.Request.Context(), c.Param("projectId"), req.Name, req.Public)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *Handler) deleteBucket(c *gin.Context) {
	if err := h.svc.DeleteBucket(c.Request.Context(), c.Param("projectId"), c.Param("bucketName")); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listFiles(c *gin.Context) {
	out, err := h.svc.ListFiles(c.Request.Context(), c.Param("projectId"), c.Param("bucketName"))
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type addFileReq struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func (h *Handler) addFile(c *gin.Context) {
	var req addFileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	f, err := h.svc.AddFile(c.Request.Context(), c.Param("projectId"), c.Param("bucketName"), req.Name, req.Path, req.Size, req.MimeType)
	if err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (h *Handler) deleteFile(c *gin.Context) {
	if err := h.svc.DeleteFile(c.Request.Context(), c.Param("projectId"), c.Param("bucketName"), c.Param("fileId")); err != nil {
		httpapi.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
