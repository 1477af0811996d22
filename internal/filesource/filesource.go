// Package filesource lists photos from a local library directory,
// pairing each image with its sidecar metadata file when one exists
// (IMG_0001.jpg + IMG_0001.jpg.json, the Takeout layout).
package filesource

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gigfolio/internal/photometa"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".heic": true, ".tif": true, ".tiff": true,
}

type File struct {
	// ID is the slash-separated path relative to the library root.
	ID          string
	Name        string
	SidecarPath string
	ModTime     time.Time
}

type Local struct {
	baseDir string
}

func NewLocal(baseDir string) (*Local, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open photo directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("photo path %s is not a directory", baseDir)
	}
	return &Local{baseDir: baseDir}, nil
}

// List walks the library and returns every image file, oldest first by
// path for deterministic batches.
func (l *Local) List() ([]File, error) {
	var files []File

	err := filepath.WalkDir(l.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(l.baseDir, path)
		if err != nil {
			return err
		}

		file := File{
			ID:      filepath.ToSlash(rel),
			Name:    d.Name(),
			ModTime: info.ModTime(),
		}
		if sidecar := path + ".json"; fileExists(sidecar) {
			file.SidecarPath = sidecar
		}

		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk photo directory: %w", err)
	}

	return files, nil
}

// Open returns the image bytes for a file id.
func (l *Local) Open(fileID string) (io.ReadCloser, error) {
	clean := filepath.Clean(filepath.FromSlash(fileID))
	if strings.Contains(clean, "..") {
		return nil, fmt.Errorf("invalid file id")
	}

	f, err := os.Open(filepath.Join(l.baseDir, clean))
	if err != nil {
		return nil, fmt.Errorf("failed to open photo: %w", err)
	}
	return f, nil
}

// ReadSidecar parses the file's sidecar metadata, or returns nil when
// the file has none.
func (l *Local) ReadSidecar(file File) (*photometa.Sidecar, error) {
	if file.SidecarPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(file.SidecarPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}
	return photometa.ParseSidecar(data)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
