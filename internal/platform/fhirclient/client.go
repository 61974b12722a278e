package fhirclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ehr/healthsync/internal/platform/fhir"
	"github.com/ehr/healthsync/pkg/fhirmodels"
)

const fhirJSON = "application/fhir+json"

// Config configures the remote FHIR client.
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	BearerToken string
}

// Client is a read-only FHIR REST client. Every call makes a single HTTP
// request; retrying is left to Retry so the policy lives in one place.
type Client struct {
	http    *resty.Client
	baseURL string
}

// NewClient creates a Client for the server at cfg.BaseURL.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	rc := resty.New().
		SetBaseURL(base).
		SetRetryCount(0).
		SetHeader("Accept", fhirJSON)
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if cfg.BearerToken != "" {
		rc.SetAuthToken(cfg.BearerToken)
	}
	return &Client{http: rc, baseURL: base}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Read fetches resourceType/id into out. A body of any other resource type
// is rejected.
func (c *Client) Read(ctx context.Context, resourceType, id string, out any) error {
	return c.get(ctx, "/"+resourceType+"/"+id, nil, resourceType, out)
}

// Search runs a search against resourceType and returns the first page.
func (c *Client) Search(ctx context.Context, resourceType string, params map[string]string) (*fhir.Bundle, error) {
	var b fhir.Bundle
	if err := c.get(ctx, "/"+resourceType, params, fhirmodels.ResourceTypeBundle, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Page fetches a page link returned by the server, such as a Bundle's next
// link. Absolute URLs are used as-is.
func (c *Client) Page(ctx context.Context, link string) (*fhir.Bundle, error) {
	var b fhir.Bundle
	if err := c.get(ctx, link, nil, fhirmodels.ResourceTypeBundle, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) get(ctx context.Context, url string, params map[string]string, want string, out any) error {
	req := c.http.R().SetContext(ctx)
	if len(params) > 0 {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(url)
	if err != nil {
		return &Error{Method: http.MethodGet, URL: url, Err: err}
	}

	status := resp.StatusCode()
	body := resp.Body()

	if fhir.PeekResourceType(body) == "OperationOutcome" {
		var oo fhir.OperationOutcome
		if jerr := json.Unmarshal(body, &oo); jerr == nil {
			return &Error{Method: http.MethodGet, URL: url, StatusCode: status, Outcome: &oo}
		}
	}
	if status < 200 || status > 299 {
		return &Error{Method: http.MethodGet, URL: url, StatusCode: status, Err: fmt.Errorf("%s", http.StatusText(status))}
	}
	if got := fhir.PeekResourceType(body); got != want {
		return &Error{Method: http.MethodGet, URL: url, StatusCode: status, Err: fmt.Errorf("expected %s, got resourceType %q", want, got)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Method: http.MethodGet, URL: url, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
