package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/vinoteca-backend/internal/orders"
	"github.com/angelmondragon/vinoteca-backend/internal/settings"
	"github.com/angelmondragon/vinoteca-backend/internal/wines"
	"github.com/angelmondragon/vinoteca-backend/pkg/enums"
	"github.com/angelmondragon/vinoteca-backend/pkg/mail"
)

type stubLowStock struct {
	threshold int
	items     []wines.Wine
}

func (s *stubLowStock) ListLowStock(ctx context.Context, threshold int) ([]wines.Wine, error) {
	s.threshold = threshold
	return s.items, nil
}

type stubSettings struct {
	current settings.Settings
}

func (s stubSettings) Get(ctx context.Context) (settings.Settings, error) {
	return s.current, nil
}

type recordingMailer struct {
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestLowStockAlertSendsSummary(t *testing.T) {
	lister := &stubLowStock{items: []wines.Wine{
		{ID: "catena-malbec", Brand: "Malbec", Winery: "Catena", Stock: 2},
		{ID: "zuccardi-q", Brand: "Q <Tempranillo>", Winery: "Zuccardi", Stock: 0},
	}}
	m := &recordingMailer{}
	job, err := NewLowStockAlertJob(LowStockAlertJobParams{
		Wines:     lister,
		Settings:  stubSettings{current: settings.Settings{LowStockThreshold: 3}},
		Mailer:    m,
		Recipient: "owner@vinoteca.com",
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if lister.threshold != 3 {
		t.Fatalf("expected settings threshold, got %d", lister.threshold)
	}
	if len(m.sent) != 1 {
		t.Fatalf("expected one alert, got %d", len(m.sent))
	}
	msg := m.sent[0]
	if msg.To != "owner@vinoteca.com" || !strings.Contains(msg.Subject, "2") {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(msg.Text, "Malbec - Catena") {
		t.Fatalf("expected wine in text body: %q", msg.Text)
	}
	if strings.Contains(msg.HTML, "<Tempranillo>") {
		t.Fatalf("html body must be escaped: %q", msg.HTML)
	}
}

func TestLowStockAlertSkipsWhenNothingLow(t *testing.T) {
	m := &recordingMailer{}
	job, _ := NewLowStockAlertJob(LowStockAlertJobParams{
		Wines:     &stubLowStock{},
		Settings:  stubSettings{},
		Mailer:    m,
		Recipient: "owner@vinoteca.com",
		Logger:    testLogger(),
	})
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(m.sent) != 0 {
		t.Fatal("no alert expected")
	}
}

func TestLowStockAlertSurfacesMailerError(t *testing.T) {
	job, _ := NewLowStockAlertJob(LowStockAlertJobParams{
		Wines:     &stubLowStock{items: []wines.Wine{{ID: "w1"}}},
		Settings:  stubSettings{},
		Mailer:    &recordingMailer{err: errors.New("sendgrid down")},
		Recipient: "owner@vinoteca.com",
		Logger:    testLogger(),
	})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected mailer error")
	}
}

type stubOrderManager struct {
	pages     []orders.ListResult
	calls     int
	cancelled []string
	failOn    string
}

func (s *stubOrderManager) List(ctx context.Context, params orders.ListParams) (*orders.ListResult, error) {
	if params.Status != enums.OrderStatusPending {
		return nil, errors.New("expected pending filter")
	}
	page := s.pages[s.calls]
	s.calls++
	return &page, nil
}

func (s *stubOrderManager) UpdateStatus(ctx context.Context, id string, status enums.OrderStatus) (*orders.Order, error) {
	if id == s.failOn {
		return nil, errors.New("firestore unavailable")
	}
	if status != enums.OrderStatusCancelled {
		return nil, errors.New("unexpected status")
	}
	s.cancelled = append(s.cancelled, id)
	return &orders.Order{ID: id, Status: status}, nil
}

func TestPendingOrderJobExpiresOnlyStaleGatewayOrders(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	old := now.Add(-96 * time.Hour)
	fresh := now.Add(-time.Hour)
	mgr := &stubOrderManager{pages: []orders.ListResult{
		{
			Items: []orders.Order{
				{ID: "fresh", PaymentMethod: enums.PaymentMethodMercadoPago, CreatedAt: fresh},
				{ID: "stale", PaymentMethod: enums.PaymentMethodMercadoPago, CreatedAt: old},
				{ID: "paid", PaymentMethod: enums.PaymentMethodMercadoPago, PaymentStatus: enums.PaymentStatusApproved, CreatedAt: old},
			},
			Cursor: "next",
		},
		{
			Items: []orders.Order{
				{ID: "transfer", PaymentMethod: enums.PaymentMethodCustom, CreatedAt: old},
				{ID: "rejected", PaymentMethod: enums.PaymentMethodMercadoPago, PaymentStatus: enums.PaymentStatusRejected, CreatedAt: old},
			},
		},
	}}
	job, err := NewPendingOrderJob(PendingOrderJobParams{
		Orders: mgr,
		TTL:    72 * time.Hour,
		Logger: testLogger(),
		Now:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if mgr.calls != 2 {
		t.Fatalf("expected both pages read, got %d", mgr.calls)
	}
	if strings.Join(mgr.cancelled, ",") != "stale,rejected" {
		t.Fatalf("unexpected cancellations %v", mgr.cancelled)
	}
}

func TestPendingOrderJobContinuesAfterFailure(t *testing.T) {
	now := time.Now()
	old := now.Add(-100 * time.Hour)
	mgr := &stubOrderManager{
		failOn: "a",
		pages: []orders.ListResult{{Items: []orders.Order{
			{ID: "a", PaymentMethod: enums.PaymentMethodMercadoPago, CreatedAt: old},
			{ID: "b", PaymentMethod: enums.PaymentMethodMercadoPago, CreatedAt: old},
		}}},
	}
	job, _ := NewPendingOrderJob(PendingOrderJobParams{Orders: mgr, Logger: testLogger(), Now: func() time.Time { return now }})

	err := job.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cancel a") {
		t.Fatalf("expected aggregated error for a, got %v", err)
	}
	if len(mgr.cancelled) != 1 || mgr.cancelled[0] != "b" {
		t.Fatalf("expected b cancelled despite failure, got %v", mgr.cancelled)
	}
}
