package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/models"
)

func ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := config.DB.Order("id ASC").Find(&categories).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

type createCategoryReq struct {
	Title       string `json:"title" binding:"required,min=1"`
	Description string `json:"description"`
}

// POST /api/categories (admin only)
func CreateCategory(c *gin.Context) {
	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	category := models.Category{Title: req.Title, Description: req.Description}
	if err := config.DB.Create(&category).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}
