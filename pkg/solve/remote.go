package solve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Remote posts requests to an external solver service speaking the same
// JSON contract, for the analysis types the in-process solver refuses.
type Remote struct {
	URL    string
	Client *http.Client
	Logger *log.Logger
}

// NewRemote returns a solver client for the endpoint url.
func NewRemote(url string, timeout time.Duration, logger *log.Logger) *Remote {
	if logger == nil {
		logger = log.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Remote{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

// Solve posts the request and decodes the solver's response. Transport and
// protocol failures are errors; an analysis the service ran but rejected
// comes back as an unsuccessful Response.
func (r *Remote) Solve(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding solve request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building solve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	res, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("posting to solver at %s: %w", r.URL, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("solver returned %s: %s", res.Status, bytes.TrimSpace(msg))
	}
	var out Response
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding solver response: %w", err)
	}
	r.Logger.Debug("remote solve finished",
		"url", r.URL, "success", out.Success, "elapsed", time.Since(start).Round(time.Millisecond))
	return &out, nil
}
