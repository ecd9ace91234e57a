package mercadopagowebhook

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/vinoteca-backend/pkg/errors"
)

const topicPayment = "payment"

// flexibleID accepts ids sent either as JSON strings or numbers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type notificationBody struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID flexibleID `json:"id"`
	} `json:"data"`
}

// Notification is a decoded gateway callback.
type Notification struct {
	Kind      string
	Action    string
	PaymentID string
}

func (n Notification) IsPayment() bool {
	return n.Kind == topicPayment
}

// ParseNotification reads both webhook (type + data.id) and IPN (topic + id
// query parameters) deliveries. An empty body is allowed when the query carries the data.
func ParseNotification(body []byte, query url.Values) (Notification, error) {
	var b notificationBody
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &b); err != nil {
			return Notification{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification body")
		}
	}

	kind := firstNonEmpty(b.Type, b.Topic, query.Get("type"), query.Get("topic"))
	id := firstNonEmpty(string(b.Data.ID), query.Get("data.id"), query.Get("id"))
	return Notification{
		Kind:      strings.ToLower(kind),
		Action:    b.Action,
		PaymentID: strings.TrimSpace(id),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
