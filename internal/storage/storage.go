// Package storage persists uploaded event images and returns the stored filename.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Store interface {
	Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error)
}

// NewFilename keeps the original extension and prefixes it with the upload time.
func NewFilename(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + hex.EncodeToString(b) + ext
}
