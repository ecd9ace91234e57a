package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

// Client wraps the Firestore SDK client used by every repository.
type Client struct {
	fs        *firestore.Client
	projectID string
}

// Pinger exposes the health-check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New connects to Firestore. With FIRESTORE_EMULATOR_HOST set the SDK talks to the emulator.
func New(ctx context.Context, gcp config.GCPConfig, cfg config.FirestoreConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errors.New("gcp project id is required")
	}

	var opts []option.ClientOption
	if gcp.ApplicationCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}

	dbID := strings.TrimSpace(cfg.DatabaseID)
	if dbID == "" {
		dbID = firestore.DefaultDatabaseID
	}

	fs, err := firestore.NewClientWithDatabase(ctx, gcp.ProjectID, dbID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"project_id": gcp.ProjectID, "database_id": dbID}), "firestore client initialized")
	}
	return &Client{fs: fs, projectID: gcp.ProjectID}, nil
}

// NewFromSDK wraps an existing SDK client.
func NewFromSDK(fs *firestore.Client) *Client {
	return &Client{fs: fs}
}

func (c *Client) Collection(name string) *firestore.CollectionRef {
	return c.fs.Collection(name)
}

// RunTransaction runs fn inside a Firestore read-write transaction.
func (c *Client) RunTransaction(ctx context.Context, fn func(context.Context, *firestore.Transaction) error) error {
	if c == nil || c.fs == nil {
		return errors.New("firestore client not initialized")
	}
	return c.fs.RunTransaction(ctx, fn)
}

// Ping performs a cheap read since Firestore has no ping RPC.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.fs == nil {
		return errors.New("firestore client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	_, err := c.fs.Collections(ctx).Next()
	if err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.fs == nil {
		return nil
	}
	return c.fs.Close()
}

// IsNotFound reports whether err is Firestore's missing-document status.
func IsNotFound(err error) bool {
	return err != nil && status.Code(err) == codes.NotFound
}

// IsAlreadyExists reports whether a Create hit an existing document.
func IsAlreadyExists(err error) bool {
	return err != nil && status.Code(err) == codes.AlreadyExists
}

// Documents drains an iterator into typed values, setting the document id through setID.
func Documents[T any](it *firestore.DocumentIterator, setID func(*T, string)) ([]T, error) {
	defer it.Stop()
	out := []T{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var v T
		if err := snap.DataTo(&v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", snap.Ref.ID, err)
		}
		if setID != nil {
			setID(&v, snap.Ref.ID)
		}
		out = append(out, v)
	}
	return out, nil
}
