package contact

import (
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

func TestSanitizeStripsMarkupAndTrims(t *testing.T) {
	got := Sanitize(Message{
		Name:    "  <b>Ana</b>   Pérez ",
		Email:   " Ana@Example.COM ",
		Subject: "Hola\r\nBcc: x@y.z",
		Message: "<script>alert(1)</script>Quiero   un\nmalbec",
	})
	if got.Name != "Ana Pérez" {
		t.Fatalf("unexpected name %q", got.Name)
	}
	if got.Email != "ana@example.com" {
		t.Fatalf("unexpected email %q", got.Email)
	}
	if strings.ContainsAny(got.Subject, "\r\n") {
		t.Fatalf("subject must be single line, got %q", got.Subject)
	}
	if strings.Contains(got.Message, "<") || !strings.Contains(got.Message, "un\nmalbec") {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestSanitizeStripsEncodedMarkup(t *testing.T) {
	got := Sanitize(Message{
		Name:    "&lt;script&gt;x&lt;/script&gt;",
		Message: "Vino &amp; queso &lt;b&gt;ya&lt;/b&gt;",
	})
	if got.Name != "x" {
		t.Fatalf("expected encoded tags removed, got %q", got.Name)
	}
	if got.Message != "Vino & queso ya" {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestSanitizeCapsLength(t *testing.T) {
	got := Sanitize(Message{Name: strings.Repeat("ñ", 300), Message: strings.Repeat("a", 6000)})
	if n := len([]rune(got.Name)); n != maxNameLen {
		t.Fatalf("expected name capped at %d runes, got %d", maxNameLen, n)
	}
	if n := len(got.Message); n != maxMessageLen {
		t.Fatalf("expected message capped at %d, got %d", maxMessageLen, n)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		msg   Message
		field string
	}{
		{"missing name", Message{Email: "a@b.co", Message: "hi"}, "name"},
		{"bad email", Message{Name: "A", Email: "nope", Message: "hi"}, "email"},
		{"display name email", Message{Name: "A", Email: "A <a@b.co>", Message: "hi"}, "email"},
		{"missing message", Message{Name: "A", Email: "a@b.co"}, "message"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.msg)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			details, _ := typed.Details().(map[string]string)
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("expected %s in details, got %v", tc.field, details)
			}
		})
	}

	if err := Validate(Message{Name: "A", Email: "a@b.co", Message: "hi"}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
}

func TestHTMLBodyEscapesInput(t *testing.T) {
	msg := Message{Name: "A & B", Email: "a@b.co", Message: "1 < 2\nok"}
	body := msg.html()
	if !strings.Contains(body, "A &amp; B") || !strings.Contains(body, "1 &lt; 2<br>ok") {
		t.Fatalf("unexpected html %s", body)
	}
	if !strings.Contains(msg.text(), "Nombre: A & B") {
		t.Fatalf("unexpected text %s", msg.text())
	}
}
