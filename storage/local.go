package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formlite/formlite-server/logger"
)

// Per-part size ceiling. Exceeding it fails the whole request before any
// database write happens.
const MaxFileSize = 10 << 20 // 10 MiB

var (
	ErrUnsupportedMediaType = errors.New("file type not allowed")
	ErrFileTooLarge         = errors.New("file exceeds the allowed size")
)

// StagedFile describes one file part written to the staging directory.
type StagedFile struct {
	FieldName    string
	StoredName   string
	StoredPath   string
	OriginalName string
	MimeType     string
}

// PublicURL is the path under which the staged file is served statically.
func (f StagedFile) PublicURL() string {
	return "/uploads/" + f.StoredName
}

// LocalStore stages multipart file parts on local disk.
type LocalStore struct {
	Dir string
}

// NewLocalStore creates the staging directory if absent (idempotent).
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

// StageRequest walks the multipart body in wire order, collecting plain
// form values and writing every file part to the staging directory. Wire
// order matters: answer normalization keeps files in the order they were
// attached. On any error the already-staged files are removed.
func (s *LocalStore) StageRequest(r *http.Request) (map[string]string, []StagedFile, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, nil, fmt.Errorf("not a multipart request: %w", err)
	}

	values := make(map[string]string)
	var staged []StagedFile

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.Remove(staged)
			return nil, nil, fmt.Errorf("read multipart body: %w", err)
		}

		if part.FileName() == "" {
			// Plain form field.
			data, err := io.ReadAll(io.LimitReader(part, 1<<20))
			part.Close()
			if err != nil {
				s.Remove(staged)
				return nil, nil, fmt.Errorf("read form field %q: %w", part.FormName(), err)
			}
			values[part.FormName()] = string(data)
			continue
		}

		file, err := s.stagePart(part)
		part.Close()
		if err != nil {
			s.Remove(staged)
			return nil, nil, err
		}
		staged = append(staged, file)
	}

	return values, staged, nil
}

func (s *LocalStore) stagePart(part *multipart.Part) (StagedFile, error) {
	mimeType := part.Header.Get("Content-Type")
	if !allowedMediaType(mimeType) {
		return StagedFile{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, mimeType)
	}

	storedName := uniqueName(part.FileName())
	storedPath := filepath.Join(s.Dir, storedName)

	dst, err := os.Create(storedPath)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(part, MaxFileSize+1))
	closeErr := dst.Close()
	if err != nil {
		os.Remove(storedPath)
		return StagedFile{}, fmt.Errorf("write staged file: %w", err)
	}
	if closeErr != nil {
		os.Remove(storedPath)
		return StagedFile{}, fmt.Errorf("close staged file: %w", closeErr)
	}
	if written > MaxFileSize {
		os.Remove(storedPath)
		return StagedFile{}, fmt.Errorf("%w: %s", ErrFileTooLarge, part.FileName())
	}

	return StagedFile{
		FieldName:    part.FormName(),
		StoredName:   storedName,
		StoredPath:   storedPath,
		OriginalName: part.FileName(),
		MimeType:     mimeType,
	}, nil
}

// Remove deletes staged files, best effort. Used when a submission is
// rejected after its files were already written.
func (s *LocalStore) Remove(files []StagedFile) {
	for _, f := range files {
		if err := os.Remove(f.StoredPath); err != nil && !os.IsNotExist(err) {
			logger.L.Warn("failed to remove staged file",
				zap.String("path", f.StoredPath), zap.Error(err))
		}
	}
}

func allowedMediaType(mimeType string) bool {
	for _, prefix := range []string{"image/", "application/", "text/", "video/", "audio/"} {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// uniqueName builds a collision-resistant name: timestamp prefix plus a
// random suffix, keeping the original extension.
func uniqueName(original string) string {
	return fmt.Sprintf("%d-%s%s", time.Now().UnixNano(), uuid.NewString(), filepath.Ext(original))
}
