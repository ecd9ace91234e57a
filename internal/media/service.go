package media

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

const (
	defaultFolder   = "uploads"
	defaultMaxBytes = 5 << 20
)

type objectStore interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, publicURL string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// Service validates and stores product images.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadOutput, error)
	Delete(ctx context.Context, publicURL string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

type UploadInput struct {
	Data        []byte
	FileName    string
	ContentType string
	Folder      string
}

type UploadOutput struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type service struct {
	store    objectStore
	maxBytes int64
	now      func() time.Time
	logg     *logger.Logger
}

func NewService(store objectStore, maxBytes int64, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &service{store: store, maxBytes: maxBytes, now: time.Now, logg: logg}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadOutput, error) {
	contentType, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	objectPath := BuildObjectPath(input.Folder, input.FileName, s.now())
	url, err := s.store.Upload(ctx, objectPath, contentType, input.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"path":         objectPath,
		"content_type": contentType,
		"size":         len(input.Data),
	}), "media.uploaded")
	return &UploadOutput{URL: url, Path: objectPath, ContentType: contentType, Size: int64(len(input.Data))}, nil
}

// validate returns the content type to store the object with. Both the declared
// and the sniffed types must be allowed images.
func (s *service) validate(input UploadInput) (string, error) {
	size := int64(len(input.Data))
	if size == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if size > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file too large").
			WithDetails(map[string]any{"max_bytes": s.maxBytes, "size": size})
	}

	declared, err := normalizeMimeType(input.ContentType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid content type")
	}
	if !isAllowedMime(declared) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("content type must be %s", allowedDescription)).
			WithDetails(map[string]any{"content_type": declared})
	}

	sniffed := sniffMimeType(input.Data)
	if !isAllowedMime(sniffed) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("file content must be %s", allowedDescription)).
			WithDetails(map[string]any{"detected": sniffed})
	}
	return sniffed, nil
}

func (s *service) Delete(ctx context.Context, publicURL string) error {
	if strings.TrimSpace(publicURL) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "url is required")
	}
	if err := s.store.Delete(ctx, publicURL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete image")
	}
	s.logg.Info(s.logg.WithField(ctx, "url", publicURL), "media.deleted")
	return nil
}

func (s *service) List(ctx context.Context, prefix string) ([]string, error) {
	urls, err := s.store.List(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list images")
	}
	return urls, nil
}

// BuildObjectPath returns <folder>/<unix millis>-<sanitized name>.
func BuildObjectPath(folder, fileName string, now time.Time) string {
	folder = sanitizeFolder(folder)
	name := sanitizeFileName(fileName)
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("%s/%s-%s", folder, strconv.FormatInt(now.UnixMilli(), 10), name)
}

func sanitizeFolder(folder string) string {
	parts := strings.FieldsFunc(folder, func(r rune) bool { return r == '/' || r == '\\' })
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		p = sanitizeFileName(p)
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	if len(clean) == 0 {
		return defaultFolder
	}
	return strings.Join(clean, "/")
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if clean == "" || clean == "." || clean == "/" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '-' || r == '_'):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "-_.")
}
