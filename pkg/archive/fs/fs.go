package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/fatture/pkg/archive"
)

var log = logrus.StandardLogger().WithField("package", "archive/fs")

type Fs struct {
	dir string
}

var _ archive.RWStorage = (*Fs)(nil)

func New(dir string) (*Fs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Fs{dir: dir}, nil
}

// resolve maps an archive path, always slash separated, below dir.
func (f *Fs) resolve(p string) string {
	return filepath.Join(f.dir, filepath.FromSlash(strings.TrimPrefix(p, "/")))
}

func (f *Fs) Exists(_ context.Context, p string) (bool, error) {
	_, err := os.Stat(f.resolve(p))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (f *Fs) Store(_ context.Context, p string, content []byte) error {
	target := f.resolve(p)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return err
	}
	log.Debugf("created file %s", target)
	return nil
}

func (f *Fs) Retrieve(_ context.Context, p string) ([]byte, error) {
	return os.ReadFile(f.resolve(p))
}
