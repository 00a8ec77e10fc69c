package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/foxseedlab/mensetsu/internal/interview"
)

type interviewResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Data    interview.Definition `json:"data"`
}

func fetchInterview(ctx context.Context, baseURL, token, interviewID string) (interview.Definition, error) {
	target := strings.TrimRight(baseURL, "/") + "/api/interviews/" + url.PathEscape(interviewID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return interview.Definition{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return interview.Definition{}, fmt.Errorf("fetch interview: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	var out interviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return interview.Definition{}, fmt.Errorf("decode interview: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return interview.Definition{}, fmt.Errorf("fetch interview: status %d: %s", resp.StatusCode, out.Error)
	}
	return out.Data, nil
}
