package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// ErrForeignURL is returned when a URL does not point into the configured bucket.
var ErrForeignURL = errors.New("url does not belong to bucket")

// Client uploads and removes public objects in a single bucket.
type Client struct {
	sdk           *storage.Client
	bucket        string
	publicBaseURL string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	var opts []option.ClientOption
	if gcp.ApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	sdk, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	client := &Client{
		sdk:           sdk,
		bucket:        strings.TrimSpace(cfg.BucketName),
		publicBaseURL: normalizeBase(cfg.PublicBaseURL),
	}

	if err := client.Ping(ctx); err != nil {
		_ = sdk.Close()
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", client.bucket), "gcs client initialized")
	}
	return client, nil
}

func normalizeBase(base string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "https://storage.googleapis.com"
	}
	return base
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Upload writes data to objectPath and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectPath, contentType string, data []byte) (string, error) {
	if c == nil || c.sdk == nil {
		return "", errors.New("gcs client not initialized")
	}
	obj := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if obj == "" {
		return "", errors.New("object path is required")
	}

	w := c.sdk.Bucket(c.bucket).Object(obj).NewWriter(ctx)
	if ct := strings.TrimSpace(contentType); ct != "" {
		w.ContentType = ct
	}
	w.CacheControl = "public, max-age=31536000"
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", obj, err)
	}
	return c.PublicURL(obj), nil
}

// Delete removes the object behind a public URL. Missing objects are not an error.
func (c *Client) Delete(ctx context.Context, publicURL string) error {
	if c == nil || c.sdk == nil {
		return errors.New("gcs client not initialized")
	}
	obj, err := c.ObjectPath(publicURL)
	if err != nil {
		return err
	}
	err = c.sdk.Bucket(c.bucket).Object(obj).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", obj, err)
	}
	return nil
}

// List returns the public URLs of every object under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	if c == nil || c.sdk == nil {
		return nil, errors.New("gcs client not initialized")
	}
	it := c.sdk.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: strings.TrimLeft(strings.TrimSpace(prefix), "/")})

	out := []string{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if attrs == nil || attrs.Name == "" || strings.HasSuffix(attrs.Name, "/") {
			continue
		}
		out = append(out, c.PublicURL(attrs.Name))
	}
	return out, nil
}

// PublicURL builds <base>/<bucket>/<escaped object path>.
func (c *Client) PublicURL(objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", normalizeBase(c.publicBaseURL), c.bucket, strings.Join(segments, "/"))
}

// ObjectPath reverses PublicURL. It also accepts gs://bucket/path URLs.
func (c *Client) ObjectPath(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is required")
	}
	if rest, ok := strings.CutPrefix(raw, "gs://"+c.bucket+"/"); ok {
		return rest, nil
	}

	prefix := normalizeBase(c.publicBaseURL) + "/" + c.bucket + "/"
	rest, ok := strings.CutPrefix(raw, prefix)
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, raw)
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", fmt.Errorf("decode object path: %w", err)
	}
	return decoded, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.sdk == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	it := c.sdk.Bucket(c.bucket).Objects(ctx, &storage.Query{})
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("gcs object check failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}
