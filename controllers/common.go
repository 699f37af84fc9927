package controllers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formlite/formlite-server/logger"
)

// internalError logs the cause and returns 500. The detail message is
// included only outside production.
func internalError(c *gin.Context, err error) {
	logger.L.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))

	body := gin.H{"message": "Internal server error"}
	if os.Getenv("APP_ENV") != "production" {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}
