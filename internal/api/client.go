package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrMissingBaseURL indicates the client was constructed without a backend URL.
	ErrMissingBaseURL = errors.New("api: base URL required")
	// ErrInvalidTargetID indicates an update or delete aimed at a non-server identity.
	ErrInvalidTargetID = errors.New("api: target must carry a server identity")
)

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL      string
	SessionToken string
	Timeout      time.Duration
	Clock        func() time.Time
	Logger       *zap.Logger
}

// Client talks to the backend's per-resource REST surface. Every operation
// is a single round trip; retry policy belongs to the caller. When a session
// token is configured its expiry is checked before each request, so an
// expired session surfaces as ErrExpiredSessionToken instead of a wasted
// round trip.
type Client struct {
	http    *resty.Client
	token   string
	session *SessionInspector
	logger  *zap.Logger
}

// ListResult is one page of a collection.
type ListResult struct {
	Items []resource.Entity
	Total int
}

// NewClient validates the configuration and returns a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	token := strings.TrimSpace(cfg.SessionToken)
	if token != "" {
		httpClient.SetAuthToken(token)
	}
	return &Client{
		http:    httpClient,
		token:   token,
		session: NewSessionInspector(cfg.Clock),
		logger:  logger,
	}, nil
}

// checkSession gates every request on the configured token being unexpired.
// Only a provable expiry short-circuits; opaque or anonymous tokens pass
// through for the server to judge.
func (c *Client) checkSession() error {
	if c.token == "" {
		return nil
	}
	if err := c.session.CheckToken(c.token); errors.Is(err, ErrExpiredSessionToken) {
		return err
	}
	return nil
}

type listWire struct {
	Items []json.RawMessage `json:"items"`
	Total int               `json:"total"`
}

// List fetches one page of the kind's collection. Filters pass through as
// query parameters.
func (c *Client) List(ctx context.Context, kind resource.Kind, filters map[string]string) (ListResult, error) {
	if err := c.checkSession(); err != nil {
		return ListResult{}, err
	}
	request := c.http.R().SetContext(ctx)
	for name, value := range filters {
		if strings.TrimSpace(value) == "" {
			continue
		}
		request.SetQueryParam(name, value)
	}
	response, err := request.Get("/api/" + kind.String())
	if err != nil {
		return ListResult{}, &TransportError{err: err}
	}
	if response.IsError() {
		return ListResult{}, c.decodeRejection(response)
	}

	var wire listWire
	if err := json.Unmarshal(response.Body(), &wire); err != nil {
		return ListResult{}, fmt.Errorf("api: decode %s list: %w", kind, err)
	}
	items := make([]resource.Entity, 0, len(wire.Items))
	for _, raw := range wire.Items {
		entity, decodeErr := resource.DecodeEntity(kind, raw)
		if decodeErr != nil {
			return ListResult{}, fmt.Errorf("api: decode %s row: %w", kind, decodeErr)
		}
		items = append(items, entity)
	}
	return ListResult{Items: items, Total: wire.Total}, nil
}

// Create submits a new entity and returns the confirmed one.
func (c *Client) Create(ctx context.Context, payload resource.Payload) (resource.Entity, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	kind := payload.Kind()
	response, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/api/" + kind.String())
	if err != nil {
		return nil, &TransportError{err: err}
	}
	if response.IsError() {
		return nil, c.decodeRejection(response)
	}
	return resource.DecodeEntity(kind, response.Body())
}

// Update replaces the entity's payload fields and returns the confirmed row.
func (c *Client) Update(ctx context.Context, id identity.EntityID, payload resource.Payload) (resource.Entity, error) {
	if err := c.checkSession(); err != nil {
		return nil, err
	}
	if !id.IsServer() {
		return nil, ErrInvalidTargetID
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	kind := payload.Kind()
	response, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Put(fmt.Sprintf("/api/%s/%d", kind, int64(id)))
	if err != nil {
		return nil, &TransportError{err: err}
	}
	if response.IsError() {
		return nil, c.decodeRejection(response)
	}
	return resource.DecodeEntity(kind, response.Body())
}

// Delete removes the entity. A successful response is an acknowledgement
// with no body.
func (c *Client) Delete(ctx context.Context, kind resource.Kind, id identity.EntityID) error {
	if err := c.checkSession(); err != nil {
		return err
	}
	if !id.IsServer() {
		return ErrInvalidTargetID
	}
	response, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/api/%s/%d", kind, int64(id)))
	if err != nil {
		return &TransportError{err: err}
	}
	if response.IsError() {
		return c.decodeRejection(response)
	}
	return nil
}

// decodeRejection turns an error response into an APIError, falling back
// to the bare status code when the body is not the {status, detail} shape.
// A decoded detail is kept even when the body omits the status field.
func (c *Client) decodeRejection(response *resty.Response) error {
	apiErr := &APIError{}
	if err := json.Unmarshal(response.Body(), apiErr); err != nil {
		apiErr.Detail = ""
	}
	if apiErr.Status == 0 {
		apiErr.Status = response.StatusCode()
	}
	c.logger.Debug("request rejected",
		zap.Int("status", apiErr.Status),
		zap.String("detail", apiErr.Detail))
	return apiErr
}
