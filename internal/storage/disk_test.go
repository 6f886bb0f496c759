package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilename_KeepsExtension(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	name := NewFilename("../../Party Poster.PNG", now)
	assert.Regexp(t, regexp.MustCompile(`^1700000000123-[0-9a-f]{8}\.png$`), name)
	assert.NotContains(t, name, "/")

	assert.NotEqual(t, NewFilename("a.jpg", now), NewFilename("a.jpg", now))
}

func TestDisk_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	d, err := NewDisk(dir)
	require.NoError(t, err)

	name, err := d.Save(context.Background(), "poster.jpg", strings.NewReader("jpeg-bytes"), 10, "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))

	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(b))
}
