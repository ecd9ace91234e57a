package combos

import "time"

// WineRef is the denormalized wine summary stored inside a combo.
type WineRef struct {
	ID     string `firestore:"id" json:"id"`
	Brand  string `firestore:"brand" json:"brand"`
	Winery string `firestore:"winery" json:"winery"`
}

// Combo is a fixed-price bundle. Its price is set by the admin and never
// derived from the prices of the wines it references.
type Combo struct {
	ID        string    `firestore:"-" json:"id"`
	Name      string    `firestore:"name" json:"name"`
	Lines     []string  `firestore:"lines" json:"lines"`
	Wines     []WineRef `firestore:"wines" json:"wines"`
	Price     float64   `firestore:"price" json:"price"`
	ImageURLs []string  `firestore:"imageUrls" json:"image_urls"`
	Featured  bool      `firestore:"featured" json:"featured"`
	CreatedAt time.Time `firestore:"createdAt" json:"created_at"`
	UpdatedAt time.Time `firestore:"updatedAt" json:"updated_at"`
}

type Input struct {
	Name      string
	Lines     []string
	WineIDs   []string
	Price     float64
	ImageURLs []string
	Featured  bool
}

type UpdateInput struct {
	Name      *string
	Lines     *[]string
	WineIDs   *[]string
	Price     *float64
	ImageURLs *[]string
	Featured  *bool
}
