package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/logger"
	"github.com/formlite/formlite-server/middleware"
	"github.com/formlite/formlite-server/models"
	"github.com/formlite/formlite-server/storage"
)

var (
	errEmailRequired    = errors.New("email is required for this form")
	errAlreadySubmitted = errors.New("this form has already been submitted")
)

// ResponseController owns the submission pipeline. The staging store and
// the optional cloud mirror are built once at startup and injected here.
type ResponseController struct {
	store  *storage.LocalStore
	mirror storage.Mirror
}

func NewResponseController(store *storage.LocalStore, mirror storage.Mirror) *ResponseController {
	return &ResponseController{store: store, mirror: mirror}
}

// answerDescriptor is one entry of the submitted answers list. Text is
// kept raw because checkbox-style answers send it as an array.
type answerDescriptor struct {
	FieldUID                uint            `json:"fieldUid"`
	Type                    string          `json:"type"`
	Text                    json.RawMessage `json:"text"`
	CheckboxSelections      []string        `json:"checkboxSelections"`
	MultipleChoiceSelection *string         `json:"multipleChoiceSelection"`
}

func (d answerDescriptor) textIsList() bool {
	t := bytes.TrimSpace(d.Text)
	return len(t) > 0 && t[0] == '['
}

func (d answerDescriptor) textValue() string {
	var s string
	if err := json.Unmarshal(d.Text, &s); err == nil {
		return s
	}
	t := bytes.TrimSpace(d.Text)
	if len(t) == 0 || string(t) == "null" {
		return ""
	}
	// Numbers, booleans, objects: keep the raw JSON text.
	return string(t)
}

// POST /api/forms/:id/responses
//
// Multipart body: "answers" carries a JSON list of descriptors, "email" /
// "userId" / "userEmail" identify the respondent, and file parts named
// image_<fieldUid>_* / file_<fieldUid>_* belong to upload questions.
func (rc *ResponseController) SubmitResponse(c *gin.Context) {
	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil || formID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	// Files are staged to disk before anything touches the database, so
	// upload constraint failures never leave partial rows behind.
	values, staged, err := rc.stage(c)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrFileTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "File exceeds the 10MB limit"})
		case errors.Is(err, storage.ErrUnsupportedMediaType):
			c.JSON(http.StatusBadRequest, gin.H{"message": "File type not allowed"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		}
		return
	}

	var form models.Form
	if err := config.DB.First(&form, formID).Error; err != nil {
		rc.store.Remove(staged)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
			return
		}
		internalError(c, err)
		return
	}

	rawAnswers := values["answers"]
	if rawAnswers == "" {
		rawAnswers = "[]"
	}
	var descriptors []answerDescriptor
	if err := json.Unmarshal([]byte(rawAnswers), &descriptors); err != nil {
		rc.store.Remove(staged)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid answers payload"})
		return
	}

	email := strings.TrimSpace(values["email"])
	ip := c.ClientIP()

	if err := checkSubmissionAllowed(config.DB, form, email, ip); err != nil {
		rc.store.Remove(staged)
		switch {
		case errors.Is(err, errEmailRequired):
			c.JSON(http.StatusBadRequest, gin.H{"message": "This form requires an email address"})
		case errors.Is(err, errAlreadySubmitted):
			c.JSON(http.StatusForbidden, gin.H{"message": "This form has already been submitted"})
		default:
			internalError(c, err)
		}
		return
	}

	// Respondent identity: an authenticated user wins over form fields.
	var userID *uint
	respondentEmail := email
	if v, ok := c.Get(middleware.CtxUser); ok {
		u := v.(models.User)
		userID = &u.ID
		if respondentEmail == "" {
			respondentEmail = u.Email
		}
	} else if raw := values["userId"]; raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			v := uint(id)
			userID = &v
		}
	}
	if respondentEmail == "" {
		respondentEmail = strings.TrimSpace(values["userEmail"])
	}

	var response models.Response
	processed := 0
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		response = models.Response{
			FormID:    form.ID,
			UserID:    userID,
			IPAddress: ip,
		}
		if respondentEmail != "" {
			response.RespondentEmail = &respondentEmail
		}
		if err := tx.Create(&response).Error; err != nil {
			return err
		}

		// One answer failing must not abort the rest of the batch. Each
		// insert runs under its own savepoint: on Postgres a failed
		// statement poisons the surrounding transaction otherwise.
		for i, d := range descriptors {
			var question models.Question
			if err := tx.First(&question, d.FieldUID).Error; err != nil {
				logger.L.Warn("question not found, skipping answer",
					zap.Uint("field_uid", d.FieldUID), zap.Uint("form_id", form.ID))
				continue
			}

			answer := normalizeAnswer(d, staged)
			answer.ResponseID = response.ID
			sp := fmt.Sprintf("answer_%d", i)
			tx.SavePoint(sp)
			if err := tx.Create(&answer).Error; err != nil {
				tx.RollbackTo(sp)
				logger.L.Error("failed to save answer",
					zap.Uint("question_id", d.FieldUID), zap.Error(err))
				continue
			}
			processed++
		}
		return nil
	})
	if err != nil {
		rc.store.Remove(staged)
		internalError(c, err)
		return
	}

	if rc.mirror != nil && len(staged) > 0 {
		go storage.MirrorAll(context.Background(), rc.mirror, staged)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Response submitted successfully",
		"response": gin.H{
			"id":          response.ID,
			"formId":      form.ID,
			"submittedAt": response.SubmittedAt,
		},
		"answersProcessed": processed,
	})
}

func (rc *ResponseController) stage(c *gin.Context) (map[string]string, []storage.StagedFile, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		return rc.store.StageRequest(c.Request)
	}
	values := map[string]string{
		"answers":   c.PostForm("answers"),
		"email":     c.PostForm("email"),
		"userId":    c.PostForm("userId"),
		"userEmail": c.PostForm("userEmail"),
	}
	return values, nil, nil
}

// checkSubmissionAllowed enforces the duplicate-submission policy before a
// response is admitted. The check-then-act window is not closed against
// concurrent requests: two simultaneous submissions from the same IP can
// both pass. Accepted as a weak-consistency tradeoff.
func checkSubmissionAllowed(db *gorm.DB, form models.Form, email, ip string) error {
	if form.AllowMultipleResponses {
		return nil
	}

	if form.RequireEmail {
		if email == "" {
			return errEmailRequired
		}
		var count int64
		if err := db.Model(&models.Response{}).
			Where("form_id = ? AND respondent_email = ?", form.ID, email).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errAlreadySubmitted
		}
	}

	var count int64
	if err := db.Model(&models.Response{}).
		Where("form_id = ? AND ip_address = ?", form.ID, ip).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errAlreadySubmitted
	}
	return nil
}

// normalizeAnswer converts one descriptor plus its staged files into a
// persistable row. The declared type decides the shape; array-valued text
// falls back to a checkbox-style multi-select.
func normalizeAnswer(d answerDescriptor, staged []storage.StagedFile) models.Answer {
	a := models.Answer{QuestionID: d.FieldUID}

	switch d.Type {
	case models.QuestionImageUpload:
		files := filesForPrefix(staged, fmt.Sprintf("image_%d_", d.FieldUID))
		if len(files) > 0 {
			a.ImageURLs = marshalJSON(publicURLs(files))
			a.ImagePaths = marshalJSON(storedPaths(files))
		}
		selections := d.CheckboxSelections
		if selections == nil {
			selections = []string{}
		}
		a.ImageResponses = marshalJSON(selections)
		a.SelectedChoices = marshalJSON(d.MultipleChoiceSelection)

	case models.QuestionFileUpload:
		files := filesForPrefix(staged, fmt.Sprintf("file_%d_", d.FieldUID))
		if len(files) > 0 {
			a.FilePaths = marshalJSON(storedPaths(files))
			// Mirror the public URLs into the generic text column for
			// client convenience.
			a.AnswerText = marshalJSON(publicURLs(files))
		}

	default:
		if d.textIsList() {
			raw := string(bytes.TrimSpace(d.Text))
			a.SelectedOptions = &raw
		} else {
			text := d.textValue()
			a.AnswerText = &text
		}
	}
	return a
}

func filesForPrefix(staged []storage.StagedFile, prefix string) []storage.StagedFile {
	var out []storage.StagedFile
	for _, f := range staged {
		if strings.HasPrefix(f.FieldName, prefix) {
			out = append(out, f)
		}
	}
	return out
}

func publicURLs(files []storage.StagedFile) []string {
	urls := make([]string, len(files))
	for i, f := range files {
		urls[i] = f.PublicURL()
	}
	return urls
}

func storedPaths(files []storage.StagedFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.StoredPath
	}
	return paths
}

func marshalJSON(v interface{}) *string {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// GET /api/forms/:id/responses
//
// Form id 0 is the sentinel for the cross-form listing and requires the
// admin role. Concrete ids require the form's creator or an admin.
func (rc *ResponseController) GetResponses(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	formID, err := strconv.Atoi(c.Param("id"))
	if err != nil || formID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid form id"})
		return
	}

	query := config.DB.
		Preload("Answers.Question").
		Preload("User").
		Preload("Form").
		Order("submitted_at DESC")

	if formID == 0 {
		if !u.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"message": "Admin role required"})
			return
		}
	} else {
		var form models.Form
		if err := config.DB.First(&form, formID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"message": "Form not found"})
				return
			}
			internalError(c, err)
			return
		}
		if !u.IsAdmin() && (form.CreatedBy == nil || *form.CreatedBy != u.ID) {
			c.JSON(http.StatusForbidden, gin.H{"message": "Not allowed"})
			return
		}
		query = query.Where("form_id = ?", formID)
	}

	var responses []models.Response
	if err := query.Find(&responses).Error; err != nil {
		internalError(c, err)
		return
	}

	out := make([]gin.H, 0, len(responses))
	for _, r := range responses {
		out = append(out, projectResponse(r))
	}
	c.JSON(http.StatusOK, out)
}

// projectResponse reshapes a response row with its preloaded relations
// into the client view.
func projectResponse(r models.Response) gin.H {
	respondent := gin.H{"name": "Anonymous", "email": "N/A"}
	if r.User != nil {
		respondent = gin.H{"name": r.User.Name, "email": r.User.Email}
	} else if r.RespondentEmail != nil && *r.RespondentEmail != "" {
		respondent["email"] = *r.RespondentEmail
	}

	answers := make([]gin.H, 0, len(r.Answers))
	for _, a := range r.Answers {
		entry := gin.H{
			"question":                nil,
			"type":                    nil,
			"answerText":              textOrNil(a.AnswerText),
			"imageUrls":               decodeStoredJSON(a.ImageURLs, "image_urls", a.ID),
			"files":                   decodeStoredJSON(a.FilePaths, "file_paths", a.ID),
			"checkboxSelections":      decodeStoredJSON(a.SelectedOptions, "selected_options", a.ID),
			"multipleChoiceSelection": decodeStoredJSON(a.SelectedChoices, "selected_choices", a.ID),
			"imageResponses":          decodeStoredJSON(a.ImageResponses, "image_responses", a.ID),
		}
		if a.Question != nil {
			entry["question"] = a.Question.QuestionText
			entry["type"] = a.Question.QuestionType
		}
		answers = append(answers, entry)
	}

	formSummary := gin.H{"title": "Untitled form", "description": "No description"}
	if r.Form != nil {
		formSummary = gin.H{"title": r.Form.Title, "description": r.Form.Description}
	}

	return gin.H{
		"id":          r.ID,
		"submittedAt": r.SubmittedAt,
		"respondent":  respondent,
		"answers":     answers,
		"form":        formSummary,
	}
}

func textOrNil(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// decodeStoredJSON deserializes a stored JSON column. Malformed content
// degrades to nil instead of failing the listing.
func decodeStoredJSON(raw *string, column string, answerID uint) interface{} {
	if raw == nil || *raw == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		logger.L.Warn("malformed stored JSON",
			zap.String("column", column), zap.Uint("answer_id", answerID), zap.Error(err))
		return nil
	}
	return v
}
