package storage

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type part struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

func buildRequest(t *testing.T, fields map[string]string, parts []part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		h.Set("Content-Type", p.contentType)
		pw, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := pw.Write(p.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func stage(t *testing.T, s *LocalStore, fields map[string]string, parts []part) (map[string]string, []StagedFile, error) {
	t.Helper()
	body, contentType := buildRequest(t, fields, parts)
	req := httptest.NewRequest("POST", "/submit", body)
	req.Header.Set("Content-Type", contentType)
	return s.StageRequest(req)
}

func TestStageRequestWritesFilesAndValues(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	values, files, err := stage(t, s,
		map[string]string{"answers": "[]", "email": "a@b.com"},
		[]part{
			{field: "image_1_a", filename: "photo.jpg", contentType: "image/jpeg", content: []byte("aaa")},
			{field: "file_2_b", filename: "doc.pdf", contentType: "application/pdf", content: []byte("bbb")},
		})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	if values["email"] != "a@b.com" || values["answers"] != "[]" {
		t.Fatalf("form values not collected: %v", values)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 staged files, got %d", len(files))
	}

	// Wire order preserved.
	if files[0].FieldName != "image_1_a" || files[1].FieldName != "file_2_b" {
		t.Fatalf("staging order lost: %v, %v", files[0].FieldName, files[1].FieldName)
	}

	for _, f := range files {
		if f.StoredName == f.OriginalName {
			t.Fatalf("stored name must not reuse the original: %s", f.StoredName)
		}
		data, err := os.ReadFile(f.StoredPath)
		if err != nil {
			t.Fatalf("staged file unreadable: %v", err)
		}
		if len(data) != 3 {
			t.Fatalf("staged bytes wrong length: %d", len(data))
		}
	}

	// Extension survives the rename.
	if filepath.Ext(files[0].StoredName) != ".jpg" || filepath.Ext(files[1].StoredName) != ".pdf" {
		t.Fatalf("extensions not preserved: %s, %s", files[0].StoredName, files[1].StoredName)
	}
	if files[0].StoredName == files[1].StoredName {
		t.Fatal("stored names must be unique")
	}
}

func TestStageRequestRejectsUnsupportedType(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, _, err = stage(t, s, nil, []part{
		{field: "image_1_a", filename: "ok.png", contentType: "image/png", content: []byte("x")},
		{field: "file_1_b", filename: "f.woff2", contentType: "font/woff2", content: []byte("y")},
	})
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
	}

	// The rejected request must not leave the earlier part behind.
	entries, readErr := os.ReadDir(s.Dir)
	if readErr != nil {
		t.Fatalf("read staging dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir should be empty after rejection, found %d", len(entries))
	}
}

func TestStageRequestRejectsOversizedPart(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	big := bytes.Repeat([]byte("z"), MaxFileSize+1)
	_, _, err = stage(t, s, nil, []part{
		{field: "file_1_a", filename: "big.bin", contentType: "application/octet-stream", content: big},
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	entries, readErr := os.ReadDir(s.Dir)
	if readErr != nil {
		t.Fatalf("read staging dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("oversized part must be removed, found %d entries", len(entries))
	}
}

func TestStageRequestExactCeilingAccepted(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	exact := bytes.Repeat([]byte("z"), MaxFileSize)
	_, files, err := stage(t, s, nil, []part{
		{field: "file_1_a", filename: "edge.bin", contentType: "application/octet-stream", content: exact},
	})
	if err != nil {
		t.Fatalf("a part at exactly the ceiling must pass: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 staged file, got %d", len(files))
	}
}

func TestRemoveCleansStagedFiles(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	_, files, err := stage(t, s, nil, []part{
		{field: "image_1_a", filename: "a.png", contentType: "image/png", content: []byte("x")},
	})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	s.Remove(files)
	if _, err := os.Stat(files[0].StoredPath); !os.IsNotExist(err) {
		t.Fatalf("staged file should be gone, stat err: %v", err)
	}

	// Removing again is harmless.
	s.Remove(files)
}

func TestNewLocalStoreIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	if _, err := NewLocalStore(dir); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := NewLocalStore(dir); err != nil {
		t.Fatalf("second create must succeed: %v", err)
	}
}

func TestUniqueNamePreservesExtension(t *testing.T) {
	a := uniqueName("photo.JPG")
	b := uniqueName("photo.JPG")
	if a == b {
		t.Fatal("names must differ between calls")
	}
	if !strings.HasSuffix(a, ".JPG") {
		t.Fatalf("extension lost: %s", a)
	}
}
