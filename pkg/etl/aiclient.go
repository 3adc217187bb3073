package etl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// defaultAIRateLimit keeps word-proposal calls well under what a typical
// third-party inference endpoint allows per key.
const defaultAIRateLimit = rate.Limit(1) // 1 req/s
const defaultAIBurst = 2

// AIClient calls the external word-proposal endpoint (spec §6.4): it
// submits a batch of recently processed messages plus the current
// protected vocabulary as an advisory, and receives proposed replace/
// special dictionary deltas for Reconcile to filter.
type AIClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	limiter    *rate.Limiter
}

// NewAIClient builds a client bound to endpoint with a 10s timeout on
// every call (spec §5 "every outbound HTTP call has a 10s timeout").
func NewAIClient(endpoint, apiKey string) *AIClient {
	return &AIClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   endpoint,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(defaultAIRateLimit, defaultAIBurst),
	}
}

// proposeRequest is the outbound payload: a batch of recently processed
// messages plus the protected vocabulary advisory.
type proposeRequest struct {
	Messages  []proposeMessage `json:"messages"`
	Protected []string         `json:"protected_vocabulary"`
}

type proposeMessage struct {
	MessageID string   `json:"message_id"`
	Text      string   `json:"processed_text"`
	Tokens    []string `json:"tokens"`
}

// proposeResponse is the inbound payload shaped per spec §4.5.2's
// proposed_replace / proposed_special.
type proposeResponse struct {
	ProposedReplace []ReplaceProposal `json:"proposed_replace"`
	ProposedSpecial []SpecialProposal `json:"proposed_special"`
}

// Propose submits the batch and returns the AI's suggested dictionary
// deltas. A network failure here is the caller's job failure (spec §6.4:
// "Network failure → job failed"); an empty response is a valid
// zero-record outcome, not an error.
func (c *AIClient) Propose(ctx context.Context, messages []proposeMessage, protected []string) ([]ReplaceProposal, []SpecialProposal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("etl: ai propose rate limiter: %w", err)
	}

	body, err := json.Marshal(proposeRequest{Messages: messages, Protected: protected})
	if err != nil {
		return nil, nil, fmt.Errorf("etl: marshal ai propose request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("etl: build ai propose request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("etl: ai propose request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("etl: ai propose endpoint returned status %d", resp.StatusCode)
	}

	var out proposeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("etl: decode ai propose response: %w", err)
	}

	return out.ProposedReplace, out.ProposedSpecial, nil
}
