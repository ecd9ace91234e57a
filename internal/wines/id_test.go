package wines

import (
	"strconv"
	"testing"
	"time"
)

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"Gran Reserva":        "gran-reserva",
		"  Bodega  Colomé ":   "bodega-colome",
		"Château d'Yquem 1er": "chateau-d-yquem-1er",
		"***":                 "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	got := NewID("Luigi Bosca", "De Sangre", now)
	want := "luigi-bosca-de-sangre-" + strconv.FormatInt(now.UnixMilli(), 36)
	if got != want {
		t.Fatalf("NewID = %q, want %q", got, want)
	}
}
