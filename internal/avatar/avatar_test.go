package avatar

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

func TestKey(t *testing.T) {
	cases := map[string]string{
		"me.png":            "avatars/7_me.png",
		"../../etc/passwd":  "avatars/7_passwd",
		`C:\Users\me\a.jpg`: "avatars/7_a.jpg",
		"dir/photo.webp":    "avatars/7_photo.webp",
	}
	for in, want := range cases {
		got, err := Key(7, in)
		if err != nil || got != want {
			t.Errorf("Key(%q) = %q, %v; ожидалось %q", in, got, err, want)
		}
	}

	for _, bad := range []string{"", "..", "/", "  "} {
		if _, err := Key(7, bad); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Key(%q): ожидалась ErrInvalidName, получено %v", bad, err)
		}
	}
}

func TestDiskStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads", 10)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	url, err := store.Save(context.Background(), "avatars/1_me.png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "/uploads/avatars/1_me.png" {
		t.Errorf("url = %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "avatars", "1_me.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Errorf("Файл записан неверно: %q, %v", data, err)
	}

	_, err = store.Save(context.Background(), "avatars/1_big.png", "image/png", strings.NewReader("01234567890"))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Ожидалась ErrTooLarge, получено %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "avatars", "1_big.png")); !os.IsNotExist(err) {
		t.Error("Слишком большой файл должен быть удалён")
	}
}

func TestDiskStoreKeepsOldFileOnFailedUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "/uploads", 8)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}

	if _, err := store.Save(context.Background(), "avatars/1_me.png", "", strings.NewReader("old")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err = store.Save(context.Background(), "avatars/1_me.png", "", strings.NewReader(strings.Repeat("x", 100)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Ожидалась ErrTooLarge, получено %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "avatars", "1_me.png"))
	if err != nil || string(data) != "old" {
		t.Errorf("Прежний аватар испорчен: %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "avatars"))
	if len(entries) != 1 {
		t.Errorf("Остались временные файлы: %d записей", len(entries))
	}

	if _, err := store.Save(context.Background(), "avatars/1_me.png", "", strings.NewReader("new")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "avatars", "1_me.png")); string(data) != "new" {
		t.Errorf("Аватар не заменён: %q", data)
	}
}

func TestEscapedURL(t *testing.T) {
	cases := map[string]string{
		"avatars/1_me.png":      "/uploads/avatars/1_me.png",
		"avatars/1_a#b.png":     "/uploads/avatars/1_a%23b.png",
		"avatars/1_a?b.png":     "/uploads/avatars/1_a%3Fb.png",
		"avatars/1_my face.png": "/uploads/avatars/1_my%20face.png",
	}
	for key, want := range cases {
		if got := escapedURL("/uploads", key); got != want {
			t.Errorf("escapedURL(%q) = %q, ожидалось %q", key, got, want)
		}
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	data, _ := io.ReadAll(in.Body)
	f.body = string(data)
	return &s3.PutObjectOutput{}, f.err
}

func TestS3Store(t *testing.T) {
	putter := &fakePutter{}
	store := NewS3Store(putter, S3Config{Bucket: "avatars-bucket", PublicURL: "https://cdn.example.com/"}, 16)

	url, err := store.Save(context.Background(), "avatars/2_me.jpg", "", strings.NewReader("jpeg"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "https://cdn.example.com/avatars/2_me.jpg" {
		t.Errorf("url = %q", url)
	}
	if *putter.input.Bucket != "avatars-bucket" || *putter.input.Key != "avatars/2_me.jpg" {
		t.Errorf("Неверные bucket/key: %s/%s", *putter.input.Bucket, *putter.input.Key)
	}
	if *putter.input.ContentType != "application/octet-stream" || *putter.input.ContentLength != 4 {
		t.Errorf("Неверные заголовки: %s, %d", *putter.input.ContentType, *putter.input.ContentLength)
	}
	if putter.body != "jpeg" {
		t.Errorf("body = %q", putter.body)
	}

	if _, err := store.Save(context.Background(), "k", "", strings.NewReader(strings.Repeat("x", 17))); !errors.Is(err, ErrTooLarge) {
		t.Errorf("Ожидалась ErrTooLarge, получено %v", err)
	}

	putter.err = errors.New("boom")
	if _, err := store.Save(context.Background(), "k", "", strings.NewReader("x")); err == nil {
		t.Error("Ошибка S3 должна пробрасываться")
	}
}

func TestS3StoreDefaultPublicURL(t *testing.T) {
	store := NewS3Store(&fakePutter{}, S3Config{Bucket: "b", Region: "eu-central-1"}, 0)
	if store.publicURL != "https://b.s3.eu-central-1.amazonaws.com" {
		t.Errorf("publicURL = %q", store.publicURL)
	}
}
