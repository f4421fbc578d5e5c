package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/musicability-api/internal/logger"
	"github.com/Conceptual-Machines/musicability-api/internal/payload"
)

// GetSchema returns the JSON Schema of the description payload, for upstream
// collaborators that ask a model for structured output
func GetSchema(c *gin.Context) {
	schema, err := payload.Schema()
	if err != nil {
		logger.Error("Failed to build description schema", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build schema"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, schema)
}
