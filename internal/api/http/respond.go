package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/kivabase/kivabase-backend/internal/apperr"
)

// Error writes the JSON error body for err using the taxonomy mapping.
// Internal failures are logged and masked; every other kind carries
// its message to the caller.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	msg := err.Error()
	if kind == apperr.Internal {
		log.Printf("[error] method=%s path=%s error=%v", c.Request.Method, c.Request.URL.Path, err)
		msg = "server error"
	}

	c.JSON(status, gin.H{"error": msg})
}
