package contact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/mail"
	"github.com/angelmondragon/vinoteca-backend/pkg/metrics"
)

type mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type Service interface {
	Submit(ctx context.Context, clientIP string, msg Message) error
}

type service struct {
	mailer    mailer
	limiter   rateLimiter
	cfg     config.ContactConfig
	metrics *metrics.Metrics
	logg    *logger.Logger
}

func NewService(m mailer, limiter rateLimiter, cfg config.ContactConfig, met *metrics.Metrics, logg *logger.Logger) (Service, error) {
	if m == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if strings.TrimSpace(cfg.Recipient) == "" {
		return nil, fmt.Errorf("contact recipient required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Window <= 0 {
		cfg.Window = 10 * time.Minute
	}
	return &service{mailer: m, limiter: limiter, cfg: cfg, metrics: met, logg: logg}, nil
}

func (s *service) Submit(ctx context.Context, clientIP string, raw Message) error {
	msg := Sanitize(raw)
	if err := Validate(msg); err != nil {
		s.metrics.IncContact("invalid")
		return err
	}

	if err := s.allow(ctx, "contact:ip:"+strings.TrimSpace(clientIP), s.cfg.IPLimit); err != nil {
		return err
	}
	if err := s.allow(ctx, "contact:email:"+msg.Email, s.cfg.EmailLimit); err != nil {
		return err
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:          s.cfg.Recipient,
		ReplyTo:     msg.Email,
		ReplyToName: msg.Name,
		Subject:     msg.subjectLine(),
		Text:        msg.text(),
		HTML:        msg.html(),
	})
	if err != nil {
		s.metrics.IncContact("error")
		s.logg.Error(ctx, "contact.send_failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send contact email")
	}
	s.metrics.IncContact("sent")
	s.logg.Info(s.logg.WithField(ctx, "reply_to", msg.Email), "contact.sent")
	return nil
}

func (s *service) allow(ctx context.Context, scope string, limit int) error {
	if limit <= 0 {
		return nil
	}
	ok, count, err := s.limiter.FixedWindowAllow(ctx, scope, int64(limit), s.cfg.Window)
	if err != nil {
		// fail open
		s.logg.Error(ctx, "contact.rate_limit_unavailable", err)
		return nil
	}
	if !ok {
		s.metrics.IncContact("rate_limited")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"scope": scope, "count": count}), "contact.rate_limited")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many messages, try again later")
	}
	return nil
}
