package contact

import (
	"fmt"
	"html"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

const (
	maxNameLen    = 100
	maxEmailLen   = 254
	maxPhoneLen   = 30
	maxSubjectLen = 150
	maxMessageLen = 5000
)

var (
	tagPattern   = regexp.MustCompile(`(?s)<[^>]*>`)
	spacePattern = regexp.MustCompile(`[ \t]+`)
)

// Message is a contact form submission.
type Message struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message" validate:"required"`
}

// Sanitize strips markup, trims whitespace and truncates every field to its cap.
func Sanitize(m Message) Message {
	return Message{
		Name:    clean(m.Name, maxNameLen, true),
		Email:   strings.ToLower(clean(m.Email, maxEmailLen, true)),
		Phone:   clean(m.Phone, maxPhoneLen, true),
		Subject: clean(m.Subject, maxSubjectLen, true),
		Message: clean(m.Message, maxMessageLen, false),
	}
}

func clean(s string, max int, singleLine bool) string {
	s = html.UnescapeString(s)
	s = tagPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if r == '\n' && !singleLine {
			return r
		}
		if r < 0x20 || r == 0x7f {
			if singleLine && (r == '\n' || r == '\r' || r == '\t') {
				return ' '
			}
			return -1
		}
		return r
	}, s)
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return truncate(s, max)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// Validate expects an already sanitized message.
func Validate(m Message) error {
	details := map[string]string{}
	if m.Name == "" {
		details["name"] = "required"
	}
	if m.Email == "" {
		details["email"] = "required"
	} else if addr, err := mail.ParseAddress(m.Email); err != nil || addr.Address != m.Email {
		details["email"] = "invalid"
	}
	if m.Message == "" {
		details["message"] = "required"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid contact message").WithDetails(details)
	}
	return nil
}

func (m Message) subjectLine() string {
	if m.Subject != "" {
		return "Contacto web: " + m.Subject
	}
	return "Contacto web de " + m.Name
}

func (m Message) text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nombre: %s\n", m.Name)
	fmt.Fprintf(&b, "Email: %s\n", m.Email)
	if m.Phone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", m.Phone)
	}
	if m.Subject != "" {
		fmt.Fprintf(&b, "Asunto: %s\n", m.Subject)
	}
	b.WriteString("\n")
	b.WriteString(m.Message)
	return b.String()
}

func (m Message) html() string {
	var b strings.Builder
	b.WriteString("<h2>Nuevo mensaje de contacto</h2><ul>")
	fmt.Fprintf(&b, "<li><strong>Nombre:</strong> %s</li>", html.EscapeString(m.Name))
	fmt.Fprintf(&b, "<li><strong>Email:</strong> %s</li>", html.EscapeString(m.Email))
	if m.Phone != "" {
		fmt.Fprintf(&b, "<li><strong>Teléfono:</strong> %s</li>", html.EscapeString(m.Phone))
	}
	if m.Subject != "" {
		fmt.Fprintf(&b, "<li><strong>Asunto:</strong> %s</li>", html.EscapeString(m.Subject))
	}
	b.WriteString("</ul><p>")
	b.WriteString(strings.ReplaceAll(html.EscapeString(m.Message), "\n", "<br>"))
	b.WriteString("</p>")
	return b.String()
}
