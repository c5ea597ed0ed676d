package avatar

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// DiskStore хранит файлы в локальном каталоге, который раздаётся
// статикой по префиксу urlPrefix.
type DiskStore struct {
	dir       string
	urlPrefix string
	maxSize   int64
}

func NewDiskStore(dir, urlPrefix string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "avatars"), 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &DiskStore{dir: dir, urlPrefix: urlPrefix, maxSize: maxSize}, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

// Save пишет во временный файл рядом с целевым и переименовывает его только
// после проверки размера: неудачная загрузка не трогает прежний аватар.
func (s *DiskStore) Save(_ context.Context, key, _ string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))

	f, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create avatar file")
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	written, err := io.Copy(f, limitReader(r, s.maxSize))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", errors.Wrap(err, "write avatar file")
	}
	if s.maxSize > 0 && written > s.maxSize {
		return "", ErrTooLarge
	}

	if err := os.Chmod(tmp, 0o644); err != nil {
		return "", errors.Wrap(err, "chmod avatar file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", errors.Wrap(err, "move avatar file")
	}

	return escapedURL(s.urlPrefix, key), nil
}
