package orders

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	fsclient "github.com/angelmondragon/vinoteca-backend/pkg/firestore"
	"github.com/angelmondragon/vinoteca-backend/pkg/pagination"
)

type listQuery struct {
	Status enums.OrderStatus
	Limit  int
	Cursor *pagination.Cursor
}

// Repository persists orders in Firestore.
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
		return nil, errors.New("orders collection required")
	}
	return &Repository{client: client, collection: collection, now: time.Now}, nil
}

func (r *Repository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

// Create stores o under o.ID, or a generated id when empty, and sets o.ID.
func (r *Repository) Create(ctx context.Context, o *Order) error {
	ref := r.col().NewDoc()
	if o.ID != "" {
		ref = r.col().Doc(o.ID)
	}
	if _, err := ref.Create(ctx, o); err != nil {
		if fsclient.IsAlreadyExists(err) {
			return pkgerrors.New(pkgerrors.CodeConflict, "order already exists")
		}
		return err
	}
	o.ID = ref.ID
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Order, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if fsclient.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, err
	}
	var o Order
	if err := snap.DataTo(&o); err != nil {
		return nil, err
	}
	o.ID = snap.Ref.ID
	return &o, nil
}

// List returns up to q.Limit orders, newest first. The caller asks for one
// extra row to learn whether a next page exists.
func (r *Repository) List(ctx context.Context, q listQuery) ([]Order, error) {
	query := r.col().Query
	if q.Status != "" {
		query = query.Where("status", "==", string(q.Status))
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
	if q.Cursor != nil {
		query = query.StartAfter(q.Cursor.CreatedAt, q.Cursor.ID)
	}
	query = query.Limit(q.Limit)
	return fsclient.Documents(query.Documents(ctx), func(o *Order, id string) { o.ID = id })
}

func (r *Repository) Update(ctx context.Context, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields)+1)
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: r.now().UTC()})
	if _, err := r.col().Doc(id).Update(ctx, updates); err != nil {
		if fsclient.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return err
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx)
	return err
}
