package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

type Disk struct {
	Dir string
}

func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Disk{Dir: dir}, nil
}

func (d *Disk) Save(ctx context.Context, originalName string, r io.Reader, _ int64, _ string) (string, error) {
	name := NewFilename(originalName, time.Now())
	f, err := os.OpenFile(filepath.Join(d.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}
	return name, ctx.Err()
}
