package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kivabase/kivabase-backend/internal/accessgate"
	"github.com/kivabase/kivabase-backend/internal/keyring"
)

// Handler serves the administrator session endpoints. The allow-list
// maps passwords to accounts; the password itself is the credential.
type Handler struct {
	accounts map[string]keyring.Account
	registry *keyring.Registry
}

func New(accounts map[string]keyring.Account, registry *keyring.Registry) *Handler {
	return &Handler{accounts: accounts, registry: registry}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)
	rg.GET("/verify", h.verify)
}

type loginReq struct {
	Password string `json:"password"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password is required"})
		return
	}

	account, ok := h.accounts[req.Password]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid password"})
		return
	}

	token := h.registry.IssueAdminToken(account)
	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"accountId":   account.ID,
		"accountName": account.Name,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if token := accessgate.AdminToken(c); token != "" {
		h.registry.RevokeAdminToken(token)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) verify(c *gin.Context) {
	account, ok := h.registry.ResolveAdminToken(accessgate.AdminToken(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"valid": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":       true,
		"accountId":   account.ID,
		"accountName": account.Name,
	})
}
