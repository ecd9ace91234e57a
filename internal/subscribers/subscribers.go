package subscribers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	fsclient "github.com/angelmondragon/vinoteca-backend/pkg/firestore"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

// Subscriber is a newsletter subscription. The document id is derived from the
// normalized email so each address is stored once.
type Subscriber struct {
	ID        string    `firestore:"-" json:"id"`
	Email     string    `firestore:"email" json:"email"`
	Active    bool      `firestore:"active" json:"active"`
	CreatedAt time.Time `firestore:"createdAt" json:"created_at"`
}

// NormalizeEmail lower-cases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email").
			WithDetails(map[string]string{"email": "must be a valid email address"})
	}
	return email, nil
}

// DocumentID hashes a normalized email.
func DocumentID(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}

type Service interface {
	Subscribe(ctx context.Context, email string) (*Subscriber, bool, error)
	List(ctx context.Context) ([]Subscriber, error)
	Delete(ctx context.Context, id string) error
}

type store interface {
	Create(ctx context.Context, s *Subscriber) (bool, error)
	FindByID(ctx context.Context, id string) (*Subscriber, error)
	List(ctx context.Context) ([]Subscriber, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo store
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo store, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriber repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

// Subscribe stores the email once. The boolean reports whether a new
// subscription was created; repeating a subscription is not an error.
func (s *service) Subscribe(ctx context.Context, raw string) (*Subscriber, bool, error) {
	email, err := NormalizeEmail(raw)
	if err != nil {
		return nil, false, err
	}
	sub := &Subscriber{
		ID:        DocumentID(email),
		Email:     email,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	if !created {
		existing, err := s.repo.FindByID(ctx, sub.ID)
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}
		if existing != nil {
			sub = existing
		}
		return sub, false, nil
	}
	s.logg.Info(s.logg.WithField(ctx, "subscriber_id", sub.ID), "newsletter.subscribed")
	return sub, true, nil
}

func (s *service) List(ctx context.Context) ([]Subscriber, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list subscriptions")
	}
	return items, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscriber id is required")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if existing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscriber not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete subscription")
	}
	return nil
}

type Repository struct {
	client     *fsclient.Client
	collection string
}

func NewRepository(client *fsclient.Client, collection string) (*Repository, error) {
	if client == nil {
		return nil, errors.New("firestore client required")
	}
	if collection == "" {
		return nil, errors.New("newsletter collection required")
	}
	return &Repository{client: client, collection: collection}, nil
}

func (r *Repository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

// Create reports false when the document already exists.
func (r *Repository) Create(ctx context.Context, s *Subscriber) (bool, error) {
	if _, err := r.col().Doc(s.ID).Create(ctx, s); err != nil {
		if fsclient.IsAlreadyExists(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindByID returns nil when the subscriber does not exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*Subscriber, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if fsclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Subscriber
	if err := snap.DataTo(&s); err != nil {
		return nil, err
	}
	s.ID = snap.Ref.ID
	return &s, nil
}

func (r *Repository) List(ctx context.Context) ([]Subscriber, error) {
	it := r.col().OrderBy("createdAt", firestore.Desc).Documents(ctx)
	return fsclient.Documents(it, func(s *Subscriber, id string) { s.ID = id })
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx)
	return err
}
