package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/middleware"
	"github.com/formlite/formlite-server/models"
	"github.com/formlite/formlite-server/storage"
	"github.com/formlite/formlite-server/utils"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := config.InitWithDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func newTestRouter(t *testing.T) (*gin.Engine, *storage.LocalStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("init staging: %v", err)
	}
	rc := NewResponseController(store, nil)

	r := gin.New()
	r.POST("/api/forms/:id/responses", middleware.OptionalAuth(), rc.SubmitResponse)
	r.GET("/api/forms/:id/responses", middleware.AuthJWT(), rc.GetResponses)
	r.GET("/api/exports/:job_id", middleware.AuthJWT(), GetExport)
	return r, store
}

func createUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()
	hash, err := utils.HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := models.User{Name: name, Email: email, Password: hash, Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createForm(t *testing.T, db *gorm.DB, owner *models.User, allowMultiple, requireEmail bool) models.Form {
	t.Helper()
	f := models.Form{
		Title:                  "Test form",
		Description:            "A form used in tests",
		AllowMultipleResponses: allowMultiple,
		RequireEmail:           requireEmail,
	}
	if owner != nil {
		f.CreatedBy = &owner.ID
	}
	if err := db.Create(&f).Error; err != nil {
		t.Fatalf("create form: %v", err)
	}
	return f
}

func createQuestion(t *testing.T, db *gorm.DB, formID uint, text, qType string) models.Question {
	t.Helper()
	q := models.Question{FormID: formID, QuestionText: text, QuestionType: qType}
	if err := db.Create(&q).Error; err != nil {
		t.Fatalf("create question: %v", err)
	}
	return q
}

func tokenFor(t *testing.T, u models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(fmt.Sprint(u.ID), u.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

type testFile struct {
	field       string
	name        string
	contentType string
	content     []byte
}

func multipartBody(t *testing.T, fields map[string]string, files []testFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part %s: %v", f.field, err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write part %s: %v", f.field, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func doSubmit(t *testing.T, r *gin.Engine, formID uint, ip string, fields map[string]string, files []testFile) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, files)
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/forms/%d/responses", formID), body)
	req.Header.Set("Content-Type", contentType)
	req.RemoteAddr = ip + ":51234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doGet(t *testing.T, r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body: %v\nbody: %s", err, w.Body.String())
	}
	return body
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var body []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response list: %v\nbody: %s", err, w.Body.String())
	}
	return body
}
