// Package client is the Go client for the sync API. It mirrors what the web
// frontend does: fetch whole documents, submit registrations, and keep a local
// own-registration pointer so a user can revise their signup without a login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"outing/internal/registration/aggregate"
	"outing/internal/registration/models"
	dErrors "outing/pkg/domain-errors"
)

// Client talks to one sync endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	cache   IdentityCache
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client (tests inject a
// httptest-backed one).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithIdentityCache sets where the own-registration pointer lives. Defaults
// to an in-memory cache.
func WithIdentityCache(cache IdentityCache) Option {
	return func(c *Client) { c.cache = cache }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   NewMemoryCache(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registrations fetches the full collection.
func (c *Client) Registrations(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	if err := c.get(ctx, "", &regs); err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []models.Registration{}
	}
	return regs, nil
}

// Config fetches the settings document.
func (c *Client) Config(ctx context.Context) (models.AppConfig, error) {
	var cfg models.AppConfig
	err := c.get(ctx, "config", &cfg)
	return cfg, err
}

// TotalHeadcount recomputes the progress-bar figure from a fresh fetch.
func (c *Client) TotalHeadcount(ctx context.Context) (int, error) {
	regs, err := c.Registrations(ctx)
	if err != nil {
		return 0, err
	}
	return aggregate.TotalHeadcount(regs), nil
}

// Submit sends a registration for name-match reconciliation and remembers the
// resulting id as this profile's own-registration pointer.
func (c *Client) Submit(ctx context.Context, in models.Input) (models.Registration, error) {
	reg, err := c.postRegistration(ctx, "", in)
	if err != nil {
		return models.Registration{}, err
	}
	if err := c.cache.Store(reg.ID); err != nil {
		// Losing the pointer only costs the user a re-reconcile by name.
		return reg, nil
	}
	return reg, nil
}

// OwnRegistration resolves the cached pointer against the authoritative
// collection. A pointer that no longer resolves is cleared and reported as
// absent; this profile then counts as a new registrant.
func (c *Client) OwnRegistration(ctx context.Context) (models.Registration, bool, error) {
	id, ok := c.cache.Load()
	if !ok {
		return models.Registration{}, false, nil
	}

	regs, err := c.Registrations(ctx)
	if err != nil {
		return models.Registration{}, false, err
	}
	if idx, found := models.FindByID(regs, id); found {
		return regs[idx], true, nil
	}

	_ = c.cache.Clear()
	return models.Registration{}, false, nil
}

// UpdateOwn revises the registration this profile owns via the explicit-id
// path. Fails with not_found (and clears the stale pointer) when the record
// is gone.
func (c *Client) UpdateOwn(ctx context.Context, in models.Input) (models.Registration, error) {
	id, ok := c.cache.Load()
	if !ok {
		return models.Registration{}, dErrors.New(dErrors.CodeNotFound, "no own registration on this profile")
	}

	reg, err := c.postRegistration(ctx, id, in)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			_ = c.cache.Clear()
		}
		return models.Registration{}, err
	}
	return reg, nil
}

// ClearAll wipes the registration collection; requires the admin passphrase.
func (c *Client) ClearAll(ctx context.Context, password string) error {
	body, _ := json.Marshal(map[string]string{"password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/sync", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "sync endpoint unreachable")
	}
	defer resp.Body.Close()
	return decodeError(resp)
}

func (c *Client) postRegistration(ctx context.Context, id string, in models.Input) (models.Registration, error) {
	payload := map[string]any{
		"registration": struct {
			ID string `json:"id,omitempty"`
			models.Input
		}{ID: id, Input: in},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return models.Registration{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync", bytes.NewReader(body))
	if err != nil {
		return models.Registration{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.Registration{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "sync endpoint unreachable")
	}
	defer resp.Body.Close()

	if err := decodeError(resp); err != nil {
		return models.Registration{}, err
	}

	var out struct {
		Success      bool                `json:"success"`
		Registration models.Registration `json:"registration"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.Registration{}, fmt.Errorf("decode sync response: %w", err)
	}
	return out.Registration, nil
}

func (c *Client) get(ctx context.Context, docType string, v any) error {
	url := c.baseURL + "/api/sync"
	if docType != "" {
		url += "?type=" + docType
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "sync endpoint unreachable")
	}
	defer resp.Body.Close()

	if err := decodeError(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// decodeError converts a non-2xx response into a coded error. The body is the
// shared error envelope.
func decodeError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	data, _ := io.ReadAll(resp.Body)
	var envelope struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Error == "" {
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("sync endpoint returned %d", resp.StatusCode))
	}
	msg := envelope.Description
	if msg == "" {
		msg = envelope.Error
	}
	return dErrors.New(dErrors.Code(envelope.Error), msg)
}
