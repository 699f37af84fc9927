package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/formlite/formlite-server/config"
	"github.com/formlite/formlite-server/logger"
	"github.com/formlite/formlite-server/middleware"
	"github.com/formlite/formlite-server/models"
)

type exportReq struct {
	Format    string  `json:"format"`
	RangeFrom *string `json:"range_from,omitempty"`
	RangeTo   *string `json:"range_to,omitempty"`
}

var exportHeader = []string{"response_id", "respondent_email", "submitted_at", "question", "value"}

// POST /api/forms/:id/export (owner only)
func CreateExport(c *gin.Context) {
	f := c.MustGet(middleware.CtxForm).(models.Form)

	var req exportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payload"})
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}
	if req.Format != "csv" && req.Format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Format must be csv or xlsx"})
		return
	}

	var fromPtr, toPtr *time.Time
	if req.RangeFrom != nil {
		if t, err := time.Parse(time.RFC3339, *req.RangeFrom); err == nil {
			fromPtr = &t
		}
	}
	if req.RangeTo != nil {
		if t, err := time.Parse(time.RFC3339, *req.RangeTo); err == nil {
			toPtr = &t
		}
	}

	job := models.ExportJob{
		JobID:     uuid.New().String(),
		FormID:    f.ID,
		Format:    req.Format,
		RangeFrom: fromPtr,
		RangeTo:   toPtr,
		Status:    "queued",
	}
	if err := config.DB.Create(&job).Error; err != nil {
		internalError(c, err)
		return
	}

	go processExportJob(job.JobID)

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.JobID, "status": "queued"})
}

// GET /api/exports/:job_id (form creator or admin)
func GetExport(c *gin.Context) {
	u := c.MustGet(middleware.CtxUser).(models.User)

	jobID := c.Param("job_id")
	var job models.ExportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"message": "Job not found"})
			return
		}
		internalError(c, err)
		return
	}

	var form models.Form
	if err := config.DB.First(&form, job.FormID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		internalError(c, err)
		return
	}
	if !u.IsAdmin() && (form.CreatedBy == nil || *form.CreatedBy != u.ID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "You do not own this export"})
		return
	}

	if job.Status == "done" && job.FilePath != nil {
		c.FileAttachment(*job.FilePath, path.Base(*job.FilePath))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id": job.JobID,
		"status": job.Status,
		"error":  job.ErrorMsg,
	})
}

func processExportJob(jobID string) {
	var job models.ExportJob
	if err := config.DB.First(&job, "job_id = ?", jobID).Error; err != nil {
		return
	}
	config.DB.Model(&job).Update("status", "processing")

	rows, err := exportRows(job)
	if err != nil {
		failJob(&job, err)
		return
	}

	outDir := os.Getenv("EXPORT_DIR")
	if outDir == "" {
		outDir = "./exports"
	}
	os.MkdirAll(outDir, 0o755)
	outPath := path.Join(outDir, fmt.Sprintf("export_%s.%s", job.JobID, job.Format))

	if job.Format == "xlsx" {
		err = writeXLSX(outPath, rows)
	} else {
		err = writeCSV(outPath, rows)
	}
	if err != nil {
		failJob(&job, err)
		return
	}

	config.DB.Model(&job).Updates(map[string]interface{}{"status": "done", "file_path": outPath})
	logger.L.Info("export finished", zap.String("job_id", job.JobID), zap.String("file", outPath))
}

func failJob(job *models.ExportJob, err error) {
	em := err.Error()
	config.DB.Model(job).Updates(map[string]interface{}{"status": "failed", "error_msg": em})
	logger.L.Error("export failed", zap.String("job_id", job.JobID), zap.Error(err))
}

// exportRows flattens responses into one row per answer.
func exportRows(job models.ExportJob) ([][]string, error) {
	q := config.DB.
		Preload("Answers.Question").
		Where("form_id = ?", job.FormID).
		Order("submitted_at ASC")
	if job.RangeFrom != nil {
		q = q.Where("submitted_at >= ?", job.RangeFrom)
	}
	if job.RangeTo != nil {
		q = q.Where("submitted_at <= ?", job.RangeTo)
	}

	var responses []models.Response
	if err := q.Find(&responses).Error; err != nil {
		return nil, err
	}

	rows := [][]string{exportHeader}
	for _, r := range responses {
		email := ""
		if r.RespondentEmail != nil {
			email = *r.RespondentEmail
		}
		for _, a := range r.Answers {
			question := ""
			if a.Question != nil {
				question = a.Question.QuestionText
			}
			rows = append(rows, []string{
				fmt.Sprintf("%d", r.ID),
				email,
				r.SubmittedAt.Format(time.RFC3339),
				question,
				flattenAnswer(a),
			})
		}
	}
	return rows, nil
}

// flattenAnswer picks the populated column for an answer. List-valued
// columns stay in their serialized form.
func flattenAnswer(a models.Answer) string {
	switch {
	case a.AnswerText != nil && *a.AnswerText != "":
		return *a.AnswerText
	case a.SelectedOptions != nil:
		return *a.SelectedOptions
	case a.ImageURLs != nil:
		return *a.ImageURLs
	case a.FilePaths != nil:
		return *a.FilePaths
	default:
		return ""
	}
}

func writeCSV(outPath string, rows [][]string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(outPath string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Responses"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(outPath)
}
