package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskImagesSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewDiskImages(dir, "uploads", nil)

	ref, err := s.Save("Front.JPG", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "/uploads/"))
	assert.True(t, strings.HasSuffix(ref, ".jpg"))

	stored := filepath.Join(dir, filepath.Base(ref))
	raw, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(raw))

	require.NoError(t, s.Delete(ref))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	assert.NoError(t, s.Delete(ref))
}

func TestDiskImagesRejectsNonImages(t *testing.T) {
	s := NewDiskImages(t.TempDir(), "uploads", nil)
	_, err := s.Save("script.sh", strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDiskImagesIgnoresForeignRefs(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.png")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	s := NewDiskImages(dir, "uploads", nil)
	assert.NoError(t, s.Delete("https://cdn.example.com/keep.png"))
	assert.NoError(t, s.Delete("/uploads/../keep.png"))
	_, err := os.Stat(keep)
	assert.NoError(t, err)
}

func TestDiskImagesManaged(t *testing.T) {
	s := NewDiskImages(t.TempDir(), "uploads", nil)
	assert.True(t, s.Managed("/uploads/a.jpg"))
	assert.True(t, s.Managed("/uploads//a.jpg"))
	assert.False(t, s.Managed("/uploads/../a.jpg"))
	assert.False(t, s.Managed("https://cdn.example.com/uploads/a.jpg"))
	assert.False(t, s.Managed("/static/a.jpg"))
}
