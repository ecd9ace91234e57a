package mercadopago

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	mpconfig "github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/vinoteca-backend/pkg/config"
	"github.com/angelmondragon/vinoteca-backend/pkg/logger"
)

const (
	defaultBaseURL = "https://api.mercadopago.com"
	defaultTimeout = 5 * time.Second
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mercadopago: status %d: %s", e.StatusCode, e.Body)
}

// ClientError reports whether the gateway rejected the call as a client error,
// for example an unknown payment id.
func (e *APIError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < http.StatusInternalServerError
}

// Client talks to MercadoPago through the official SDK behind a circuit breaker.
type Client struct {
	preferences preference.Client
	payments    payment.Client
	sandbox     bool
	breaker     *gobreaker.CircuitBreaker[any]
}

func NewClient(cfg config.MercadoPagoConfig, breaker config.BreakerConfig, logg *logger.Logger) (*Client, error) {
	token := cfg.Token()
	if token == "" {
		return nil, errors.New("mercadopago access token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base, err := baseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	sdkCfg, err := mpconfig.New(token, mpconfig.WithHTTPClient(&requester{
		http: &http.Client{Timeout: timeout},
		base: base,
	}))
	if err != nil {
		return nil, fmt.Errorf("mercadopago config: %w", err)
	}

	return &Client{
		preferences: preference.NewClient(sdkCfg),
		payments:    payment.NewClient(sdkCfg),
		sandbox:     cfg.Sandbox(),
		breaker:     newBreaker(breaker, logg),
	}, nil
}

func baseURL(raw string) (*url.URL, error) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw == "" || raw == defaultBaseURL {
		return nil, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid mercadopago base url %q", raw)
	}
	return parsed, nil
}

func newBreaker(cfg config.BreakerConfig, logg *logger.Logger) *gobreaker.CircuitBreaker[any] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "mercadopago",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client errors are the caller's fault and must not open the circuit.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.ClientError()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logg == nil {
				return
			}
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "mercadopago.breaker.state_change")
		},
	})
}

// Sandbox reports whether the client runs against sandbox credentials.
func (c *Client) Sandbox() bool {
	return c.sandbox
}

// CreatePreference registers a purchase and returns its hosted checkout data.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	sdkReq, err := req.toSDK()
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	out, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		return c.preferences.Create(ctx, sdkReq)
	})
	if err != nil {
		return nil, fmt.Errorf("create preference: %w", err)
	}
	resp, _ := out.(*preference.Response)
	if resp == nil || resp.ID == "" {
		return nil, errors.New("create preference: empty preference id")
	}
	return &Preference{ID: resp.ID, InitPoint: resp.InitPoint, SandboxInitPoint: resp.SandboxInitPoint}, nil
}

// GetPayment fetches the payment referenced by a notification.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}
	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return nil, &APIError{StatusCode: http.StatusBadRequest, Body: "payment id must be numeric"}
	}
	out, err := c.execute(ctx, func(ctx context.Context) (any, error) {
		return c.payments.Get(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	resp, _ := out.(*payment.Response)
	if resp == nil {
		return nil, fmt.Errorf("get payment %s: empty response", paymentID)
	}
	return paymentFromSDK(resp)
}

// execute runs one SDK call through the breaker. The requester records the HTTP
// status on the call's context so SDK errors can be classified.
func (c *Client) execute(ctx context.Context, call func(context.Context) (any, error)) (any, error) {
	return c.breaker.Execute(func() (any, error) {
		rec := &statusRecord{}
		out, err := call(withStatusRecord(ctx, rec))
		if err == nil {
			return out, nil
		}
		if rec.code >= 300 {
			return nil, &APIError{StatusCode: rec.code, Body: err.Error()}
		}
		return nil, err
	})
}

func (r PreferenceRequest) toSDK() (preference.Request, error) {
	items := make([]preference.ItemRequest, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, preference.ItemRequest{
			ID:          it.ID,
			Title:       it.Title,
			Description: it.Description,
			PictureURL:  it.PictureURL,
			CurrencyID:  it.CurrencyID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}

	metadata, err := toMap(r.Metadata)
	if err != nil {
		return preference.Request{}, fmt.Errorf("encode metadata: %w", err)
	}

	return preference.Request{
		Items: items,
		Payer: &preference.PayerRequest{
			Name:  r.Payer.Name,
			Email: r.Payer.Email,
			Phone: &preference.PhoneRequest{
				AreaCode: r.Payer.Phone.AreaCode,
				Number:   r.Payer.Phone.Number,
			},
			Address: &preference.AddressRequest{
				StreetName: r.Payer.Address.StreetName,
				ZipCode:    r.Payer.Address.ZipCode,
			},
		},
		BackURLs: &preference.BackURLsRequest{
			Success: r.BackURLs.Success,
			Failure: r.BackURLs.Failure,
			Pending: r.BackURLs.Pending,
		},
		AutoReturn:          r.AutoReturn,
		NotificationURL:     r.NotificationURL,
		ExternalReference:   r.ExternalReference,
		StatementDescriptor: r.StatementDescriptor,
		Metadata:            metadata,
	}, nil
}

func paymentFromSDK(resp *payment.Response) (*Payment, error) {
	out := &Payment{
		ID:                int64(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		TransactionAmount: resp.TransactionAmount,
	}
	if len(resp.Metadata) == 0 {
		return out, nil
	}
	raw, err := json.Marshal(resp.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode payment metadata: %w", err)
	}
	if err := json.Unmarshal(raw, &out.Metadata); err != nil {
		return nil, fmt.Errorf("decode payment metadata: %w", err)
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
