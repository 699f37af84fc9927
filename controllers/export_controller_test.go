package controllers

import (
	"encoding/csv"
	"net/http"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/models"
)

func seedResponses(t *testing.T) (models.Form, models.Question) {
	t.Helper()
	db := setupDB(t)
	r, _ := newTestRouter(t)

	f := createForm(t, db, nil, true, false)
	q := createQuestion(t, db, f.ID, "Feedback", models.QuestionShortText)

	for _, text := range []string{"great", "fine"} {
		w := doSubmit(t, r, f.ID, "10.0.4.1", map[string]string{
			"answers": answersJSON(t, map[string]interface{}{
				"fieldUid": q.ID, "type": "short_text", "text": text,
			}),
			"email": "rater@example.com",
		}, nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed submission failed: %d", w.Code)
		}
	}
	return f, q
}

func runExport(t *testing.T, formID uint, format string) models.ExportJob {
	t.Helper()
	t.Setenv("EXPORT_DIR", t.TempDir())

	job := models.ExportJob{
		JobID:  uuid.New().String(),
		FormID: formID,
		Format: format,
		Status: "queued",
	}
	if err := config.DB.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}

	processExportJob(job.JobID)

	if err := config.DB.First(&job, "job_id = ?", job.JobID).Error; err != nil {
		t.Fatalf("reload job: %v", err)
	}
	return job
}

func TestExportCSV(t *testing.T) {
	f, _ := seedResponses(t)

	job := runExport(t, f.ID, "csv")
	if job.Status != "done" {
		t.Fatalf("expected done, got %s (%v)", job.Status, job.ErrorMsg)
	}
	if job.FilePath == nil {
		t.Fatal("file path not recorded")
	}

	file, err := os.Open(*job.FilePath)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// Header plus one row per answer.
	if len(rows) != 3 {
		t.Fatalf("expected 3 csv rows, got %d", len(rows))
	}
	if rows[0][0] != "response_id" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][3] != "Feedback" || rows[1][4] != "great" {
		t.Fatalf("unexpected first data row: %v", rows[1])
	}
	if rows[1][1] != "rater@example.com" {
		t.Fatalf("respondent email missing: %v", rows[1])
	}
}

func TestGetExportForbiddenForNonOwner(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupDB(t)
	r, _ := newTestRouter(t)

	owner := createUser(t, db, "Owner", "owner@example.com", models.RoleUser)
	other := createUser(t, db, "Other", "other@example.com", models.RoleUser)
	f := createForm(t, db, &owner, true, false)

	job := models.ExportJob{
		JobID:  uuid.New().String(),
		FormID: f.ID,
		Format: "csv",
		Status: "queued",
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("create job: %v", err)
	}

	// Holding the job id is not enough; the form's creator owns the export.
	if w := doGet(t, r, "/api/exports/"+job.JobID, tokenFor(t, other)); w.Code != http.StatusForbidden {
		t.Fatalf("non-owner: expected 403, got %d", w.Code)
	}
	if w := doGet(t, r, "/api/exports/"+job.JobID, tokenFor(t, owner)); w.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", w.Code)
	}
}

func TestExportXLSX(t *testing.T) {
	f, _ := seedResponses(t)

	job := runExport(t, f.ID, "xlsx")
	if job.Status != "done" {
		t.Fatalf("expected done, got %s (%v)", job.Status, job.ErrorMsg)
	}
	if job.FilePath == nil {
		t.Fatal("file path not recorded")
	}
	info, err := os.Stat(*job.FilePath)
	if err != nil {
		t.Fatalf("stat export: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("xlsx export is empty")
	}
}
