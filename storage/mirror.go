package storage

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/formlite/formlite-server/logger"
)

// Mirror copies staged files to a cloud provider. Mirroring is optional
// and best-effort; the local copy stays authoritative.
type Mirror interface {
	// Upload stores the file at localPath under name and returns a
	// durable reference (URL or provider id).
	Upload(ctx context.Context, localPath, name, mimeType string) (string, error)
	Name() string
}

// MirrorFromEnv builds the configured mirror, or nil for local-only
// operation. STORAGE_PROVIDER selects "drive" or "supabase".
func MirrorFromEnv(ctx context.Context) Mirror {
	switch os.Getenv("STORAGE_PROVIDER") {
	case "drive":
		m, err := NewDriveMirror(ctx, os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"), os.Getenv("GOOGLE_DRIVE_FOLDER"))
		if err != nil {
			logger.L.Error("drive mirror disabled", zap.Error(err))
			return nil
		}
		return m
	case "supabase":
		return NewSupabaseMirror(os.Getenv("SUPABASE_URL"), os.Getenv("SUPABASE_KEY"), os.Getenv("SUPABASE_BUCKET"))
	default:
		return nil
	}
}

// MirrorAll uploads every staged file, logging per-file outcomes. Never
// returns an error: a failed mirror must not fail a submission.
func MirrorAll(ctx context.Context, m Mirror, files []StagedFile) {
	if m == nil {
		return
	}
	for _, f := range files {
		ref, err := m.Upload(ctx, f.StoredPath, f.StoredName, f.MimeType)
		if err != nil {
			logger.L.Warn("mirror upload failed",
				zap.String("provider", m.Name()),
				zap.String("file", f.StoredName),
				zap.Error(err))
			continue
		}
		logger.L.Info("mirrored staged file",
			zap.String("provider", m.Name()),
			zap.String("file", f.StoredName),
			zap.String("ref", ref))
	}
}
