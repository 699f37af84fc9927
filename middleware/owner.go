package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/models"
)

// CtxForm is the context key for the form loaded by CheckFormOwner.
const CtxForm = "formObj"

// CheckFormOwner loads the form from the :id param and verifies the
// authenticated user owns it. Admins pass regardless of ownership.
func CheckFormOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := c.MustGet(CtxUser).(models.User)

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
			return
		}

		var f models.Form
		if err := config.DB.First(&f, id).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Form not found"})
			return
		}

		if !u.IsAdmin() && (f.CreatedBy == nil || *f.CreatedBy != u.ID) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "You do not own this form"})
			return
		}

		c.Set(CtxForm, f)
		c.Next()
	}
}
