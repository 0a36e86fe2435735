// Package storage keeps uploaded listing images on local disk.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnsupportedType is returned for files whose extension is not an image.
var ErrUnsupportedType = errors.New("unsupported image type")

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true}

// Images stores listing images and hands back references clients can fetch.
type Images interface {
	Save(filename string, data io.Reader) (string, error)
	Delete(ref string) error
	Managed(ref string) bool
}

// DiskImages writes images under basepath. References are URL paths of the
// form <urlPrefix>/<uuid><ext>, served by the router's static handler.
type DiskImages struct {
	basepath  string
	urlPrefix string
	log       *zap.Logger
}

func NewDiskImages(basepath, urlPrefix string, log *zap.Logger) *DiskImages {
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("creating disk image storage", zap.String("basepath", basepath))
	return &DiskImages{basepath: basepath, urlPrefix: "/" + strings.Trim(urlPrefix, "/"), log: log}
}

// Save copies data to a fresh file named after a new uuid, keeping the
// lower-cased extension of filename.
func (s *DiskImages) Save(filename string, data io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}
	if err := os.MkdirAll(s.basepath, 0o755); err != nil {
		s.log.Error("error creating upload directory", zap.String("path", s.basepath), zap.Error(err))
		return "", fmt.Errorf("error creating upload directory: %w", err)
	}
	name := uuid.NewString() + ext
	fullpath := filepath.Join(s.basepath, name)
	file, err := os.OpenFile(fullpath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		s.log.Error("error opening file for writing", zap.String("path", fullpath), zap.Error(err))
		return "", fmt.Errorf("error opening file %v: %w", name, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		s.log.Error("error writing to file", zap.String("path", fullpath), zap.Error(err))
		_ = os.Remove(fullpath)
		return "", fmt.Errorf("error writing to file %v: %w", name, err)
	}
	return path.Join(s.urlPrefix, name), nil
}

// Managed reports whether ref names a file under this store's URL prefix.
func (s *DiskImages) Managed(ref string) bool {
	return path.Dir(path.Clean(ref)) == s.urlPrefix
}

// Delete removes the file behind ref. References not issued by this store,
// and files that are already gone, are ignored.
func (s *DiskImages) Delete(ref string) error {
	if !s.Managed(ref) {
		return nil
	}
	name := path.Base(path.Clean(ref))
	fullpath := filepath.Join(s.basepath, name)
	if err := os.Remove(fullpath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("error deleting file", zap.String("path", fullpath), zap.Error(err))
		return fmt.Errorf("error deleting file %v: %w", name, err)
	}
	return nil
}
