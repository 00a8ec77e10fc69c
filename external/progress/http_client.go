package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foxseedlab/mensetsu/internal/progress"
	"github.com/foxseedlab/mensetsu/internal/retry"
)

const defaultRequestTimeout = 10 * time.Second

// HTTPClient talks to the progress routes of the backend API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	policy  retry.Policy
}

func NewHTTPClient(baseURL, token string, policy retry.Policy) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		policy:  policy,
	}
}

func (c *HTTPClient) Save(ctx context.Context, interviewID string, input progress.SaveInput) error {
	b, err := json.Marshal(progress.NewSaveRequest(interviewID, input))
	if err != nil {
		return err
	}
	var resp progress.SaveResponse
	if err := c.policy.Do(ctx, "save progress", func(ctx context.Context) error {
		return c.do(ctx, http.MethodPost, c.progressURL(interviewID), b, &resp)
	}); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", progress.ErrSaveRejected, resp.Message)
	}
	return nil
}

func (c *HTTPClient) Load(ctx context.Context, interviewID string) (*progress.Snapshot, error) {
	var resp progress.LoadResponse
	if err := c.policy.Do(ctx, "load progress", func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, c.progressURL(interviewID), nil, &resp)
	}); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, progress.ErrNoProgress
	}
	return resp.Data.Snapshot(interviewID), nil
}

func (c *HTTPClient) progressURL(interviewID string) string {
	return c.baseURL + "/api/interviews/" + url.PathEscape(interviewID) + "/progress"
}

// do sends one request. Client errors are permanent, everything else is
// left to the retry policy.
func (c *HTTPClient) do(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return retry.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return retry.Permanent(progress.ErrNoProgress)
	}
	if !isHTTPSuccessStatus(resp.StatusCode) {
		err := fmt.Errorf("progress api returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return retry.Permanent(err)
		}
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Permanent(fmt.Errorf("decode progress response: %w", err))
	}
	return nil
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
