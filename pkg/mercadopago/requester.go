package mercadopago

import (
	"context"
	"net/http"
	"net/url"
)

type statusRecordKey struct{}

type statusRecord struct {
	code int
}

func withStatusRecord(ctx context.Context, rec *statusRecord) context.Context {
	return context.WithValue(ctx, statusRecordKey{}, rec)
}

// requester is the HTTP transport handed to the SDK. It applies the configured
// timeout, optionally points the SDK at another host, and records the response
// status for the breaker.
type requester struct {
	http *http.Client
	base *url.URL
}

func (r *requester) Do(req *http.Request) (*http.Response, error) {
	if r.base != nil {
		target := *req.URL
		target.Scheme = r.base.Scheme
		target.Host = r.base.Host
		req = req.Clone(req.Context())
		req.URL = &target
		req.Host = r.base.Host
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	if rec, ok := req.Context().Value(statusRecordKey{}).(*statusRecord); ok {
		rec.code = resp.StatusCode
	}
	return resp, nil
}
