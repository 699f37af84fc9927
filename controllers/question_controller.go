package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/middleware"
	"github.com/formlite/formlite-server/models"
)

type addQuestionReq struct {
	QuestionText      string         `json:"question_text" binding:"required"`
	QuestionType      string         `json:"question_type" binding:"required"`
	Options           datatypes.JSON `json:"options"`
	Required          bool           `json:"required"`
	Placeholder       string         `json:"placeholder"`
	MaxImages         int            `json:"max_images"`
	CheckboxOptions   datatypes.JSON `json:"checkbox_options"`
	ChoiceOptions     datatypes.JSON `json:"choice_options"`
	AdminImages       datatypes.JSON `json:"admin_images"`
	EnableAdminImages bool           `json:"enable_admin_images"`
}

// POST /api/forms/:id/questions (owner only)
func AddQuestion(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	var req addQuestionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	// Next position = MAX(position)+1, zero-based.
	type nextRes struct{ Next int }
	var r nextRes
	_ = config.DB.Model(&models.Question{}).
		Where("form_id = ?", f.ID).
		Select("COALESCE(MAX(position), -1) + 1 AS next").
		Scan(&r).Error

	q := models.Question{
		FormID:            f.ID,
		QuestionText:      req.QuestionText,
		QuestionType:      strings.ToLower(strings.TrimSpace(req.QuestionType)),
		Options:           req.Options,
		Required:          req.Required,
		Placeholder:       req.Placeholder,
		MaxImages:         req.MaxImages,
		CheckboxOptions:   req.CheckboxOptions,
		ChoiceOptions:     req.ChoiceOptions,
		AdminImages:       req.AdminImages,
		EnableAdminImages: req.EnableAdminImages,
		Position:          r.Next,
	}

	if err := config.DB.Create(&q).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"question_id": q.ID, "form_id": f.ID})
}

type updateQuestionReq struct {
	QuestionText    *string         `json:"question_text"`
	QuestionType    *string         `json:"question_type"`
	Options         *datatypes.JSON `json:"options"`
	Required        *bool           `json:"required"`
	Placeholder     *string         `json:"placeholder"`
	MaxImages       *int            `json:"max_images"`
	CheckboxOptions *datatypes.JSON `json:"checkbox_options"`
	ChoiceOptions   *datatypes.JSON `json:"choice_options"`
}

// PUT /api/questions/:id (form owner only)
func UpdateQuestion(c *gin.Context) {
	q, ok := loadOwnedQuestion(c)
	if !ok {
		return
	}

	var req updateQuestionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Invalid payload", "error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.QuestionText != nil {
		updates["question_text"] = *req.QuestionText
	}
	if req.QuestionType != nil {
		updates["question_type"] = strings.ToLower(strings.TrimSpace(*req.QuestionType))
	}
	if req.Options != nil {
		updates["options"] = *req.Options
	}
	if req.Required != nil {
		updates["required"] = *req.Required
	}
	if req.Placeholder != nil {
		updates["placeholder"] = *req.Placeholder
	}
	if req.MaxImages != nil {
		updates["max_images"] = *req.MaxImages
	}
	if req.CheckboxOptions != nil {
		updates["checkbox_options"] = *req.CheckboxOptions
	}
	if req.ChoiceOptions != nil {
		updates["choice_options"] = *req.ChoiceOptions
	}
	if len(updates) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "Nothing to update"})
		return
	}

	if err := config.DB.Model(&q).Updates(updates).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question updated", "id": q.ID})
}

// DELETE /api/questions/:id (form owner only)
func DeleteQuestion(c *gin.Context) {
	q, ok := loadOwnedQuestion(c)
	if !ok {
		return
	}

	if err := config.DB.Delete(&q).Error; err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted", "id": q.ID})
}

func loadOwnedQuestion(c *gin.Context) (models.Question, bool) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid question id"})
		return models.Question{}, false
	}

	var q models.Question
	if err := config.DB.Preload("Form").First(&q, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Question not found"})
		return models.Question{}, false
	}

	if !u.IsAdmin() && (q.Form.CreatedBy == nil || *q.Form.CreatedBy != u.ID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this form"})
		return models.Question{}, false
	}
	return q, true
}
