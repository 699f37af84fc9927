package storage

import (
	"context"
	"fmt"
	"os"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseMirror uploads staged files to a Supabase storage bucket.
type SupabaseMirror struct {
	client *storage_go.Client
	bucket string
}

func NewSupabaseMirror(url, key, bucket string) *SupabaseMirror {
	if bucket == "" {
		bucket = "uploads"
	}
	return &SupabaseMirror{
		client: storage_go.NewClient(url+"/storage/v1", key, nil),
		bucket: bucket,
	}
}

func (m *SupabaseMirror) Name() string { return "supabase" }

func (m *SupabaseMirror) Upload(ctx context.Context, localPath, name, mimeType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	upsert := true
	options := storage_go.FileOptions{
		ContentType: &mimeType,
		Upsert:      &upsert,
	}

	if _, err := m.client.UploadFile(m.bucket, name, f, options); err != nil {
		return "", fmt.Errorf("supabase upload: %w", err)
	}

	publicURL := m.client.GetPublicUrl(m.bucket, name)
	return publicURL.SignedURL, nil
}
