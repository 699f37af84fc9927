package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/middleware"
	"github.com/formlite/formlite-server/models"
)

type createFormReq struct {
	Title                  string `json:"title" binding:"required,min=1"`
	Description            string `json:"description"`
	CategoryID             *uint  `json:"category_id"`
	AllowMultipleResponses bool   `json:"allow_multiple_responses"`
	RequireEmail           bool   `json:"require_email"`
}

func CreateForm(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	var req createFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	if req.CategoryID != nil {
		var count int64
		config.DB.Model(&models.Category{}).Where("id = ?", *req.CategoryID).Count(&count)
		if count == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Unknown category"})
			return
		}
	}

	form := models.Form{
		Title:                  req.Title,
		Description:            req.Description,
		CategoryID:             req.CategoryID,
		AllowMultipleResponses: req.AllowMultipleResponses,
		RequireEmail:           req.RequireEmail,
		CreatedBy:              &u.ID,
	}
	if err := config.DB.Create(&form).Error; err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, form)
}

// ListForms is the public form index: id, title and category only.
func ListForms(c *gin.Context) {
	var forms []models.Form
	if err := config.DB.
		Select("id", "title", "category_id").
		Find(&forms).Error; err != nil {
		internalError(c, err)
		return
	}

	out := make([]gin.H, 0, len(forms))
	for _, f := range forms {
		out = append(out, gin.H{
			"id":          f.ID,
			"title":       f.Title,
			"category_id": f.CategoryID,
		})
	}
	c.JSON(http.StatusOK, out)
}

func GetFormDetail(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	var form models.Form
	err = config.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		First(&form, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                       form.ID,
		"title":                    form.Title,
		"description":              form.Description,
		"category_id":              form.CategoryID,
		"allow_multiple_responses": form.AllowMultipleResponses,
		"require_email":            form.RequireEmail,
		"questions":                form.Questions,
	})
}

type updateFormReq struct {
	Title                  *string `json:"title"`
	Description            *string `json:"description"`
	CategoryID             *uint   `json:"category_id"`
	AllowMultipleResponses *bool   `json:"allow_multiple_responses"`
	RequireEmail           *bool   `json:"require_email"`
}

func UpdateForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	var req updateFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.AllowMultipleResponses != nil {
		updates["allow_multiple_responses"] = *req.AllowMultipleResponses
	}
	if req.RequireEmail != nil {
		updates["require_email"] = *req.RequireEmail
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Nothing to update"})
		return
	}

	if err := config.DB.Model(&f).Updates(updates).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form updated", "id": f.ID})
}

func DeleteForm(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	if err := config.DB.Delete(&f).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Form deleted", "id": f.ID})
}

func GetMyForms(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	var forms []models.Form
	if err := config.DB.
		Where("created_by = ?", u.ID).
		Order("created_at DESC").
		Find(&forms).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, forms)
}
