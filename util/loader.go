// Package util holds filesystem helpers for the command line tools.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Name is the base name of the file.
	Name string
	// Data is the raw bytes of the image file.
	Data []byte
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".b64":  true,
	".txt":  true,
}

// IsImageFile reports whether name has an extension the loader picks up.
// ".b64" and ".txt" hold base64 or data-URI text.
func IsImageFile(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The files sorted by name, each with its raw bytes.
// - error: Error if loading fails.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !IsImageFile(entry.Name()) {
			continue
		}

		imgPath := filepath.Join(dir, entry.Name())
		data, readErr := os.ReadFile(imgPath)
		if readErr != nil {
			return nil, errors.Wrapf(readErr, "failed to read %s", imgPath)
		}
		files = append(files, ImageFile{
			Path: imgPath,
			Name: entry.Name(),
			Data: data,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// OutputName maps an input file name to the name of its processed output:
// ".jpg" for image bytes, ".b64" for base64 text.
func OutputName(name string, base64 bool) string {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base64 {
		return stem + ".b64"
	}
	return stem + ".jpg"
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
