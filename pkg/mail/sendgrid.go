package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

// Message is one transactional email.
type Message struct {
	To          string
	ToName      string
	ReplyTo     string
	ReplyToName string
	Subject     string
	Text        string
	HTML        string
}

type sender interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer delivers messages through the SendGrid v3 API.
type SendGridMailer struct {
	client   sender
	from     string
	fromName string
	logg     *logger.Logger
}

func NewSendGridMailer(cfg config.SendgridConfig, logg *logger.Logger) (*SendGridMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &SendGridMailer{
		client:   sendgrid.NewSendClient(cfg.APIKey),
		from:     strings.TrimSpace(cfg.DefaultFrom),
		fromName: cfg.FromName,
		logg:     logg,
	}, nil
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("to address is empty")
	}
	email := m.build(msg)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", resp.StatusCode, resp.Body)
	}

	if m.logg != nil {
		logCtx := m.logg.WithFields(ctx, map[string]any{"status": resp.StatusCode, "subject": msg.Subject})
		m.logg.Info(logCtx, "mail.sent")
	}
	return nil
}

func (m *SendGridMailer) build(msg Message) *sgmail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = "<pre>" + msg.Text + "</pre>"
	}
	email := sgmail.NewSingleEmail(
		sgmail.NewEmail(m.fromName, m.from),
		msg.Subject,
		sgmail.NewEmail(msg.ToName, msg.To),
		msg.Text,
		html,
	)
	if strings.TrimSpace(msg.ReplyTo) != "" {
		email.SetReplyTo(sgmail.NewEmail(msg.ReplyToName, msg.ReplyTo))
	}
	return email
}
