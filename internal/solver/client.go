package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"field/board/internal/config"
	"field/board/internal/schedule"

	"github.com/rs/zerolog"
)

// ErrUnconfigured is returned for any remote call when no solver base URL is
// set. Local and demo display keep working; only remote optimization is off.
var ErrUnconfigured = errors.New("solver gateway is not configured")

// Client talks to the remote vehicle-routing optimization service. The
// service is consumed as an opaque HTTP collaborator: this package only
// prepares inputs and decodes the status/route structures.
type Client struct {
	baseURL string
	apiKey  string
	session *http.Client
	log     zerolog.Logger
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.SolverConfig, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		session: &http.Client{Timeout: cfg.RequestTimeout},
		log:     log,
	}
}

// Configured reports whether remote optimization is available.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// SubmitResponse acknowledges a submitted optimization job.
type SubmitResponse struct {
	ID           string `json:"id"`
	SolverStatus string `json:"solverStatus"`
}

type submitRequest struct {
	ModelInput       *schedule.ModelInput `json:"modelInput"`
	MapConfigID      string               `json:"mapConfigId"`
	TerminationLimit string               `json:"terminationLimit,omitempty"`
}

// SubmitRoutePlan sends the model to the solver and returns the job handle.
// terminationLimit optionally bounds solver run time as an ISO duration
// string; empty means run to natural completion.
func (c *Client) SubmitRoutePlan(ctx context.Context, model *schedule.ModelInput, mapConfigID, terminationLimit string) (SubmitResponse, error) {
	var out SubmitResponse
	if !c.Configured() {
		return out, ErrUnconfigured
	}
	if model == nil {
		return out, errors.New("model input is required")
	}

	payload, err := json.Marshal(submitRequest{
		ModelInput:       model,
		MapConfigID:      mapConfigID,
		TerminationLimit: terminationLimit,
	})
	if err != nil {
		return out, fmt.Errorf("encode route plan request: %w", err)
	}

	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodPost, c.baseURL+"/v1/route-plans", bytes.NewReader(payload))
	})
	if err != nil {
		return out, fmt.Errorf("submit route plan: %w", err)
	}
	defer resp.Body.Close()

	if err := decodeJSON(resp.Body, &out); err != nil {
		return out, fmt.Errorf("submit route plan: %w", err)
	}
	return out, nil
}

// PollRoutePlan fetches the current state of a submitted job.
func (c *Client) PollRoutePlan(ctx context.Context, id string) (*schedule.RoutePlan, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, c.baseURL+"/v1/route-plans/"+id, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("poll route plan %s: %w", id, err)
	}
	defer resp.Body.Close()

	var plan schedule.RoutePlan
	if err := decodeJSON(resp.Body, &plan); err != nil {
		return nil, fmt.Errorf("poll route plan %s: %w", id, err)
	}
	if plan.ID == "" {
		plan.ID = id
	}
	return &plan, nil
}

// DatasetInfo describes one entry of the solver's demo catalogue.
type DatasetInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListDatasets fetches the demo dataset catalogue.
func (c *Client) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, c.baseURL+"/v1/demo-data", nil)
	})
	if err != nil {
		return nil, fmt.Errorf("list demo datasets: %w", err)
	}
	defer resp.Body.Close()

	var items []DatasetInfo
	if err := decodeJSON(resp.Body, &items); err != nil {
		return nil, fmt.Errorf("list demo datasets: %w", err)
	}
	return items, nil
}

// GetDataset fetches one demo dataset as a ModelInput.
func (c *Client) GetDataset(ctx context.Context, id string) (*schedule.ModelInput, error) {
	if !c.Configured() {
		return nil, ErrUnconfigured
	}
	resp, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		return c.newRequest(ctx, http.MethodGet, c.baseURL+"/v1/demo-data/"+id, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("get demo dataset %s: %w", id, err)
	}
	defer resp.Body.Close()

	var model schedule.ModelInput
	if err := decodeJSON(resp.Body, &model); err != nil {
		return nil, fmt.Errorf("get demo dataset %s: %w", id, err)
	}
	return &model, nil
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("solver returned %d: %s", e.Code, e.Body)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// doWithRetry retries transient failures (network errors, 429/5xx responses)
// with exponential backoff while respecting context cancellation.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	const maxAttempts = 3
	backoff := 200 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if errors.As(err, &he) {
			switch he.Code {
			case http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && errors.As(err, &netErr) {
			retry = true
		}

		if !retry || attempt == maxAttempts {
			return nil, lastErr
		}

		c.log.Warn().Err(err).Int("attempt", attempt).Msg("solver request failed, retrying")
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, lastErr
}

// decodeJSON rejects non-JSON payloads with a distinguishable error so the
// caller can treat them as transient transport/format failures.
func decodeJSON(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
