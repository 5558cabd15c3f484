// Package assistant is a thin transport client for the conversational-AI
// provider's thread/run protocol. It performs requests and decodes
// responses only; polling, backoff, and rate-limit policy belong to the
// generation orchestrator.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

const betaHeader = "OpenAI-Beta"

// Client calls the assistant API with bearer auth and the assistants beta
// header.
type Client struct {
	baseURL     string
	apiKey      string
	assistantID string
	apiVersion  string
	client      *http.Client
	logger      logger.Logger
}

func NewClient(baseURL, apiKey, assistantID, apiVersion string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		apiKey:      apiKey,
		assistantID: assistantID,
		apiVersion:  apiVersion,
		client:      &http.Client{Timeout: timeout},
		logger:      log.WithFields(map[string]interface{}{"component": "assistant"}),
	}
}

// CreateThread opens a new thread seeded with an initial user message.
// The provider only supports user/assistant roles, so system-level
// instructions travel inside the first user message.
func (c *Client) CreateThread(ctx context.Context, initialMessage string) (string, error) {
	payload := map[string]interface{}{
		"messages": []map[string]string{
			{"role": "user", "content": initialMessage},
		},
	}

	var t thread
	if err := c.post(ctx, "/threads", payload, &t); err != nil {
		return "", err
	}

	c.logger.Debug("thread created", map[string]interface{}{"threadId": t.ID})
	return t.ID, nil
}

// CreateRun starts a generation run for the configured assistant.
func (c *Client) CreateRun(ctx context.Context, threadID string) (string, error) {
	payload := map[string]string{
		"assistant_id": c.assistantID,
	}

	var run Run
	if err := c.post(ctx, "/threads/"+threadID+"/runs", payload, &run); err != nil {
		return "", err
	}
	return run.ID, nil
}

// GetRun retrieves the run's current status. A Retry-After response header,
// when present, is surfaced on the returned Run for the caller's backoff.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	endpoint := "/threads/" + threadID + "/runs/" + runID

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewAssistantAPIError("get_run", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewAssistantAPIError("get_run", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAssistantAPIError("get_run", err)
	}
	if err := checkStatus("get_run", resp, body); err != nil {
		return nil, err
	}

	var run Run
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, errors.NewAssistantAPIError("get_run", fmt.Errorf("decode run: %w", err))
	}

	run.RetryAfter = retryAfterHeader(resp)
	return &run, nil
}

// LatestAssistantMessage returns the text of the newest assistant message
// in the thread. The provider lists messages newest-first.
func (c *Client) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/threads/"+threadID+"/messages", nil)
	if err != nil {
		return "", errors.NewAssistantAPIError("list_messages", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.NewAssistantAPIError("list_messages", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewAssistantAPIError("list_messages", err)
	}
	if err := checkStatus("list_messages", resp, body); err != nil {
		return "", err
	}

	var list messageList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", errors.NewAssistantAPIError("list_messages", fmt.Errorf("decode messages: %w", err))
	}

	for _, msg := range list.Data {
		if msg.Role != "assistant" {
			continue
		}
		for _, part := range msg.Content {
			if part.Type == "text" && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}

	return "", errors.NewAssistantAPIError("list_messages",
		fmt.Errorf("no assistant message found in thread %s", threadID))
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewAssistantAPIError(endpoint, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.NewAssistantAPIError(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.NewAssistantAPIError(endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewAssistantAPIError(endpoint, err)
	}
	if err := checkStatus(endpoint, resp, respBody); err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.NewAssistantAPIError(endpoint, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// checkStatus maps a non-200 response to an error. A 429 becomes a rate
// limit error carrying the Retry-After hint so the orchestrator can back
// off instead of failing the section.
func checkStatus(operation string, resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.NewRateLimitExceededError(retryAfterHeader(resp))
	default:
		return errors.NewAssistantAPIError(operation,
			fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}
}

func retryAfterHeader(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set(betaHeader, c.apiVersion)
	return req, nil
}
