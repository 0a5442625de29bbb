package importer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// makeTempDir creates a fresh extraction directory under root
func (im *Importer) makeTempDir() (string, error) {
	root := im.tempRoot
	if root == "" {
		root = os.TempDir()
	}

	dir := filepath.Join(root, fmt.Sprintf("playlistlog-%d-%s", im.now().Unix(), uuid.NewString()))
	if err := os.Mkdir(dir, 0700); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTempDir, err)
	}

	return dir, nil
}

// extract unpacks the zip archive at path into dir. Entries that would
// land outside dir abort the extraction; entries naming dir itself are
// skipped.
func extract(path, dir string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtract, err)
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(dir, f.Name)
		rel, err := filepath.Rel(dir, target)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			return fmt.Errorf("%w: entry %q escapes extraction directory", ErrExtract, f.Name)
		}
		if rel == "." {
			continue
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0700); err != nil {
				return fmt.Errorf("%w: %v", ErrExtract, err)
			}
			continue
		}

		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtract, f.Name, err)
		}
	}

	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}

	return dst.Close()
}
