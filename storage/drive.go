package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveMirror uploads staged files to a Google Drive folder using a
// service-account credential. Built once at startup and injected; the
// Drive client is safe for concurrent use.
type DriveMirror struct {
	svc      *drive.Service
	folderID string
}

func NewDriveMirror(ctx context.Context, credentialsFile, folderID string) (*DriveMirror, error) {
	if credentialsFile == "" {
		return nil, errors.New("GOOGLE_APPLICATION_CREDENTIALS is not set")
	}
	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive client: %w", err)
	}
	return &DriveMirror{svc: svc, folderID: folderID}, nil
}

func (m *DriveMirror) Name() string { return "drive" }

func (m *DriveMirror) Upload(ctx context.Context, localPath, name, mimeType string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	meta := &drive.File{Name: name}
	if m.folderID != "" {
		meta.Parents = []string{m.folderID}
	}

	created, err := m.svc.Files.Create(meta).
		Media(f, googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("drive upload: %w", err)
	}

	if created.WebViewLink != "" {
		return created.WebViewLink, nil
	}
	return created.Id, nil
}

// CreateFolder makes a Drive folder, optionally inside a parent, and
// returns its id. Used by provisioning scripts to set up the upload root.
func (m *DriveMirror) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}

	created, err := m.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive create folder: %w", err)
	}
	return created.Id, nil
}
