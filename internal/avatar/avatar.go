// Package avatar сохраняет загруженные аватары и возвращает публичный URL.
package avatar

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrTooLarge    = errors.New("file too large")
	ErrInvalidName = errors.New("invalid file name")
)

// Store хранилище файлов аватаров.
type Store interface {
	// Save записывает содержимое под ключом key и возвращает URL для клиента.
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
}

// Key строит ключ вида avatars/{userID}_{имя файла}.
// Из имени убираются каталоги, чтобы нельзя было выйти за пределы avatars/.
func Key(userID int64, filename string) (string, error) {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", ErrInvalidName
	}
	return fmt.Sprintf("avatars/%d_%s", userID, name), nil
}

// limitReader читает не больше max+1 байт, чтобы заметить превышение; max <= 0 значит без ограничения
func limitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return io.LimitReader(r, max+1)
}

// escapedURL склеивает базовый URL и ключ, экранируя каждый сегмент ключа,
// чтобы имена с '#', '?' или пробелами оставались доступными.
func escapedURL(base, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return base + "/" + strings.Join(segments, "/")
}
