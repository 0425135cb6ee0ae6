// internal/storage/storage.go
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage is the only interface the upload handler depends on.
// Swap the implementation in main.go; handler code never changes.
type Storage interface {
	// Upload stores an asset for the project and returns the path the
	// running demo serves it under, e.g. "/uploads/<name>.png".
	Upload(folder string, file io.Reader, filename string) (string, error)
}

// LocalStorage writes into <projects>/<folder>/public/uploads so the demo's
// static file server picks assets up without a rebuild.
type LocalStorage struct {
	ProjectsDir string
}

func NewLocalStorage(projectsDir string) *LocalStorage {
	return &LocalStorage{ProjectsDir: projectsDir}
}

func (s *LocalStorage) Upload(folder string, file io.Reader, filename string) (string, error) {
	// The client's filename never reaches the path or the public URL.
	ext := strings.ToLower(filepath.Ext(filename))
	safeFilename := uuid.New().String() + ext

	uploadDir := filepath.Join(s.ProjectsDir, folder, "public", "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(uploadDir, safeFilename))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return "/uploads/" + safeFilename, nil
}
