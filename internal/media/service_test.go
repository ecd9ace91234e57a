package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{0}, 32)...)
)

type stubStore struct {
	uploads map[string]string
	deleted []string
	listed  []string
	err     error
}

func (s *stubStore) Upload(_ context.Context, objectPath, contentType string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.uploads == nil {
		s.uploads = map[string]string{}
	}
	s.uploads[objectPath] = contentType
	return "https://storage.googleapis.com/bucket/" + objectPath, nil
}

func (s *stubStore) Delete(_ context.Context, url string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, url)
	return nil
}

func (s *stubStore) List(_ context.Context, prefix string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []string
	for _, u := range s.listed {
		if strings.Contains(u, "/"+prefix) {
			out = append(out, u)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, store objectStore, maxBytes int64) *service {
	t.Helper()
	svc, err := NewService(store, maxBytes, logger.New(logger.Options{Output: io.Discard}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	s := svc.(*service)
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func TestUploadStoresUnderFolderWithTimestamp(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(t, store, 0)

	out, err := svc.Upload(context.Background(), UploadInput{
		Data:        pngBytes,
		FileName:    "Malbec Reserva.PNG",
		ContentType: "image/png",
		Folder:      "wines",
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if out.Path != "wines/1700000000000-malbec-reserva.png" {
		t.Fatalf("unexpected path %q", out.Path)
	}
	if store.uploads[out.Path] != "image/png" {
		t.Fatalf("unexpected stored content type %q", store.uploads[out.Path])
	}
	if !strings.HasSuffix(out.URL, out.Path) {
		t.Fatalf("unexpected url %q", out.URL)
	}
}

func TestUploadAcceptsJPGAlias(t *testing.T) {
	svc := newTestService(t, &stubStore{}, 0)
	out, err := svc.Upload(context.Background(), UploadInput{Data: jpegBytes, FileName: "a.jpg", ContentType: "image/jpg"})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if out.ContentType != "image/jpeg" {
		t.Fatalf("expected sniffed image/jpeg, got %q", out.ContentType)
	}
	if !strings.HasPrefix(out.Path, defaultFolder+"/") {
		t.Fatalf("expected default folder, got %q", out.Path)
	}
}

func TestUploadValidation(t *testing.T) {
	cases := []struct {
		name  string
		input UploadInput
		max   int64
	}{
		{"empty", UploadInput{ContentType: "image/png"}, 0},
		{"too large", UploadInput{Data: pngBytes, ContentType: "image/png"}, 10},
		{"declared gif", UploadInput{Data: pngBytes, ContentType: "image/gif"}, 0},
		{"declared missing", UploadInput{Data: pngBytes}, 0},
		{"content is pdf", UploadInput{Data: []byte("%PDF-1.4\n%...."), ContentType: "image/png"}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &stubStore{}
			svc := newTestService(t, store, tc.max)
			_, err := svc.Upload(context.Background(), tc.input)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(store.uploads) != 0 {
				t.Fatalf("nothing should be uploaded on validation failure")
			}
		})
	}
}

func TestUploadLimitIsFiveMegabytesByDefault(t *testing.T) {
	svc := newTestService(t, &stubStore{}, 0)
	big := append(append([]byte{}, pngBytes...), make([]byte, 5<<20)...)
	_, err := svc.Upload(context.Background(), UploadInput{Data: big, ContentType: "image/png"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected size rejection, got %v", err)
	}
}

func TestUploadStoreFailureIsDependencyError(t *testing.T) {
	svc := newTestService(t, &stubStore{err: errors.New("gcs down")}, 0)
	_, err := svc.Upload(context.Background(), UploadInput{Data: pngBytes, ContentType: "image/png"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestDeleteAndList(t *testing.T) {
	store := &stubStore{listed: []string{
		"https://storage.googleapis.com/bucket/wines/1-a.png",
		"https://storage.googleapis.com/bucket/combos/2-b.png",
	}}
	svc := newTestService(t, store, 0)
	ctx := context.Background()

	if err := svc.Delete(ctx, " "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty url, got %v", err)
	}
	if err := svc.Delete(ctx, store.listed[0]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected one deletion")
	}

	urls, err := svc.List(ctx, "wines")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(urls) != 1 {
		t.Fatalf("expected one wines url, got %v", urls)
	}
}

func TestBuildObjectPathSanitizes(t *testing.T) {
	now := time.UnixMilli(42)
	cases := map[string][2]string{
		"../../etc/passwd": {"../secret", "etc/passwd/42-secret"},
		"combos/2026":      {"Caja ñ 6.webp", "combos/2026/42-caja-_-6.webp"},
		"wines":            {"", "wines/42-image"},
		" ":                {`C:\fakepath\foto.jpg`, "uploads/42-foto.jpg"},
	}
	for folder, tc := range cases {
		if got := BuildObjectPath(folder, tc[0], now); got != tc[1] {
			t.Fatalf("BuildObjectPath(%q, %q) = %q, want %q", folder, tc[0], got, tc[1])
		}
	}
}
