package cron

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
	"github.com/angelmondragon/vinoteca-backend/pkg/mail"
)

type lowStockLister interface {
	ListLowStock(ctx context.Context, threshold int) ([]wines.Wine, error)
}

type settingsReader interface {
	Get(ctx context.Context) (settings.Settings, error)
}

type mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

type LowStockAlertJobParams struct {
	Wines     lowStockLister
	Settings  settingsReader
	Mailer    mailer
	Recipient string
	Logger    *logger.Logger
}

// lowStockAlertJob emails the shop owner the wines at or under the configured threshold.
type lowStockAlertJob struct {
	wines     lowStockLister
	settings  settingsReader
	mailer    mailer
	recipient string
	logg      *logger.Logger
}

func NewLowStockAlertJob(params LowStockAlertJobParams) (Job, error) {
	if params.Wines == nil {
		return nil, fmt.Errorf("wines service required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings service required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if strings.TrimSpace(params.Recipient) == "" {
		return nil, fmt.Errorf("alert recipient required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &lowStockAlertJob{
		wines:     params.Wines,
		settings:  params.Settings,
		mailer:    params.Mailer,
		recipient: strings.TrimSpace(params.Recipient),
		logg:      params.Logger,
	}, nil
}

func (j *lowStockAlertJob) Name() string { return "low_stock_alert" }

func (j *lowStockAlertJob) Run(ctx context.Context) error {
	current, err := j.settings.Get(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	items, err := j.wines.ListLowStock(ctx, current.LowStockThreshold)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	ctx = j.logg.WithFields(ctx, map[string]any{"threshold": current.LowStockThreshold, "count": len(items)})
	if len(items) == 0 {
		j.logg.Debug(ctx, "cron.low_stock_none")
		return nil
	}

	if err := j.mailer.Send(ctx, lowStockMessage(j.recipient, current.LowStockThreshold, items)); err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	j.logg.Info(ctx, "cron.low_stock_alert_sent")
	return nil
}

func lowStockMessage(to string, threshold int, items []wines.Wine) mail.Message {
	var text, rows strings.Builder
	fmt.Fprintf(&text, "Vinos con stock menor o igual a %d:\n\n", threshold)
	for _, w := range items {
		fmt.Fprintf(&text, "- %s (%s): %d\n", w.DisplayName(), w.ID, w.Stock)
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%d</td></tr>", html.EscapeString(w.DisplayName()), html.EscapeString(w.ID), w.Stock)
	}
	return mail.Message{
		To:      to,
		Subject: fmt.Sprintf("Stock bajo: %d vinos", len(items)),
		Text:    text.String(),
		HTML:    "<table><tr><th>Vino</th><th>ID</th><th>Stock</th></tr>" + rows.String() + "</table>",
	}
}
