package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	fsclient "github.com/angelmondragon/vinoteca-backend/pkg/firestore"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

// DocumentID is the single document holding the site settings.
const DocumentID = "general"

const defaultLowStockThreshold = 5

// Settings is the storefront configuration editable from the admin panel.
type Settings struct {
	ShippingCost          float64   `firestore:"shippingCost" json:"shipping_cost"`
	FreeShippingThreshold float64   `firestore:"freeShippingThreshold" json:"free_shipping_threshold"`
	WhatsApp              string    `firestore:"whatsapp" json:"whatsapp"`
	ContactEmail          string    `firestore:"contactEmail" json:"contact_email"`
	BannerText            string    `firestore:"bannerText" json:"banner_text"`
	LowStockThreshold     int       `firestore:"lowStockThreshold" json:"low_stock_threshold"`
	UpdatedAt             time.Time `firestore:"updatedAt" json:"updated_at"`
}

// Defaults is returned when the settings document does not exist yet.
func Defaults() Settings {
	return Settings{LowStockThreshold: defaultLowStockThreshold}
}

// ShippingFor returns the shipping cost for an order subtotal. A positive
// free-shipping threshold waives the cost once reached.
func (s Settings) ShippingFor(subtotal float64) float64 {
	if s.FreeShippingThreshold > 0 && subtotal >= s.FreeShippingThreshold {
		return 0
	}
	if s.ShippingCost < 0 {
		return 0
	}
	return s.ShippingCost
}

type UpdateInput struct {
	ShippingCost          *float64
	FreeShippingThreshold *float64
	WhatsApp              *string
	ContactEmail          *string
	BannerText            *string
	LowStockThreshold     *int
}

type Service interface {
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, input UpdateInput) (Settings, error)
}

type store interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s Settings) error
}

type service struct {
	repo store
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo store, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context) (Settings, error) {
	current, err := s.repo.Load(ctx)
	if err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load settings")
	}
	if current == nil {
		return Defaults(), nil
	}
	return *current, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (Settings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return Settings{}, err
	}
	if input.ShippingCost != nil {
		current.ShippingCost = *input.ShippingCost
	}
	if input.FreeShippingThreshold != nil {
		current.FreeShippingThreshold = *input.FreeShippingThreshold
	}
	if input.WhatsApp != nil {
		current.WhatsApp = strings.TrimSpace(*input.WhatsApp)
	}
	if input.ContactEmail != nil {
		current.ContactEmail = strings.TrimSpace(*input.ContactEmail)
	}
	if input.BannerText != nil {
		current.BannerText = strings.TrimSpace(*input.BannerText)
	}
	if input.LowStockThreshold != nil {
		current.LowStockThreshold = *input.LowStockThreshold
	}

	details := map[string]string{}
	if current.ShippingCost < 0 {
		details["shipping_cost"] = "must be >= 0"
	}
	if current.FreeShippingThreshold < 0 {
		details["free_shipping_threshold"] = "must be >= 0"
	}
	if current.LowStockThreshold < 0 {
		details["low_stock_threshold"] = "must be >= 0"
	}
	if len(details) > 0 {
		return Settings{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid settings").WithDetails(details)
	}

	current.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, current); err != nil {
		return Settings{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save settings")
	}
	s.logg.Info(ctx, "settings.updated")
	return current, nil
}

// Repository reads and writes the settings document.
type Repository struct {
	client     *fsclient.Client
	collection string
}

func NewRepository(client *fsclient.Client, collection string) (*Repository, error) {
	if client == nil {
		return nil, errors.New("firestore client required")
	}
	if collection == "" {
		return nil, errors.New("settings collection required")
	}
	return &Repository{client: client, collection: collection}, nil
}

func (r *Repository) doc() *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(DocumentID)
}

// Load returns nil when the document has not been created yet.
func (r *Repository) Load(ctx context.Context) (*Settings, error) {
	snap, err := r.doc().Get(ctx)
	if err != nil {
		if fsclient.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Settings
	if err := snap.DataTo(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) Save(ctx context.Context, s Settings) error {
	_, err := r.doc().Set(ctx, s)
	return err
}
