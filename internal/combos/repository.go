package combos

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	fsclient "github.com/angelmondragon/vinoteca-backend/pkg/firestore"
)

type Repository struct {
	client     *fsclient.Client
	collection string
}

func NewRepository(client *fsclient.Client, collection string) (*Repository, error) {
	if client == nil {
		return nil, errors.New("firestore client required")
	}
	if collection == "" {
		return nil, errors.New("combos collection required")
	}
	return &Repository{client: client, collection: collection}, nil
}

func (r *Repository) col() *firestore.CollectionRef {
	return r.client.Collection(r.collection)
}

func (r *Repository) List(ctx context.Context) ([]Combo, error) {
	it := r.col().OrderBy("createdAt", firestore.Desc).Documents(ctx)
	return fsclient.Documents(it, func(c *Combo, id string) { c.ID = id })
}

func (r *Repository) FindByID(ctx context.Context, id string) (*Combo, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if fsclient.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "combo not found")
		}
		return nil, err
	}
	var c Combo
	if err := snap.DataTo(&c); err != nil {
		return nil, err
	}
	c.ID = snap.Ref.ID
	return &c, nil
}

// Create stores c under a generated document id and sets c.ID.
func (r *Repository) Create(ctx context.Context, c *Combo) error {
	ref := r.col().NewDoc()
	if _, err := ref.Create(ctx, c); err != nil {
		return err
	}
	c.ID = ref.ID
	return nil
}

// Save overwrites the whole document.
func (r *Repository) Save(ctx context.Context, c *Combo) error {
	_, err := r.col().Doc(c.ID).Set(ctx, c)
	return err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx)
	return err
}
