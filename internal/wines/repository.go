package wines

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	fsclient "github.com/angelmondragon/vinoteca-backend/pkg/firestore"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

// Repository persists wines in Firestore.
type Repository struct {
	client     *fsclient.Client
	collection string
	now        func() time.Time
}

func NewRepository(client *fsclient.Client, collection string) (*Repository, error) {
	if client == nil {
		return nil, errors.New("firestore client required")
	}
	if collection == "" {
		return nil, errors.New("products collection required")
	}
	return &Repository{client: client, collection: collection, now: time.Now}, nil
}

func (r *Repository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func setID(w *Wine, id string) { w.ID = id }

func (r *Repository) List(ctx context.Context) ([]Wine, error) {
	return fsclient.Documents(r.col().Documents(ctx), setID)
}

func (r *Repository) ListFeatured(ctx context.Context) ([]Wine, error) {
	return fsclient.Documents(r.col().Where("featured", "==", true).Documents(ctx), setID)
}

// ListLowStock returns wines whose stock is at or below threshold, lowest first.
func (r *Repository) ListLowStock(ctx context.Context, threshold int) ([]Wine, error) {
	q := r.col().Where("stock", "<=", threshold).OrderBy("stock", firestore.Asc)
	return fsclient.Documents(q.Documents(ctx), setID)
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Wine, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if fsclient.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
		}
		return nil, err
	}
	var w Wine
	if err := snap.DataTo(&w); err != nil {
		return nil, err
	}
	w.ID = snap.Ref.ID
	return &w, nil
}

// Create stores w under w.ID and fails if the id already exists.
func (r *Repository) Create(ctx context.Context, w *Wine) error {
	if _, err := r.col().Doc(w.ID).Create(ctx, w); err != nil {
		if fsclient.IsAlreadyExists(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "wine already exists")
		}
		return err
	}
	return nil
}

// Update writes only the given fields plus updatedAt.
func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: r.now().UTC()})

	if _, err := r.col().Doc(id).Update(ctx, updates); err != nil {
		if fsclient.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
		}
		return err
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx)
	return err
}

// DecrementStock reads, checks and writes the stock of one wine inside a transaction.
// It returns the remaining stock.
func (r *Repository) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	ref := r.col().Doc(id)
	var remaining int
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if fsclient.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "wine not found")
			}
			return err
		}
		var w Wine
		if err := snap.DataTo(&w); err != nil {
			return err
		}
		next, err := decrement(w.Stock, qty)
		if err != nil {
			return err
		}
		remaining = next
		return tx.Update(ref, []firestore.Update{
			{Path: "stock", Value: next},
			{Path: "updatedAt", Value: r.now().UTC()},
		})
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// decrement is the stock check applied inside the transaction. Stock never goes negative.
func decrement(current, qty int) (int, error) {
	if qty <= 0 {
		return current, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if current < qty {
		return current, pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
			WithDetails(map[string]int{"available": current, "requested": qty})
	}
	return current - qty, nil
}
