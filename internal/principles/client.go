package principles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

// TraitScore is one PPM trait measurement.
type TraitScore struct {
	RawScore   float64 `json:"rawScore"`
	Percentage float64 `json:"percentage"`
}

// PpmScores is the full trait score set for one account.
type PpmScores struct {
	PpmScore map[string]TraitScore `json:"ppmScore"`
}

// OccupationWeightings reshapes the trait scores into the weighting vector
// the compatibility endpoint expects: target key -> trait -> raw score as
// a string.
func (s *PpmScores) OccupationWeightings(targetKey string) map[string]map[string]string {
	out := map[string]map[string]string{targetKey: {}}
	for trait, score := range s.PpmScore {
		out[targetKey][trait] = fmt.Sprintf("%g", score.RawScore)
	}
	return out
}

// ErrorMargin is the signed [-1,1] distance between a person's trait vector
// and a target occupation profile, plus a percentile bucket.
type ErrorMargin struct {
	Value      float64 `json:"value"`
	Percentile string  `json:"percentile,omitempty"`
}

// CompatibilityScore is the compatibility computation response. The raw
// payload is retained because prompts embed the full structure.
type CompatibilityScore struct {
	CustomOccupationsErrorMargins struct {
		ErrorMargins map[string]ErrorMargin `json:"errorMargins"`
	} `json:"customOccupationsErrorMargins"`

	Raw json.RawMessage `json:"-"`
}

// Margin returns the error margin for the given weighting key.
func (c *CompatibilityScore) Margin(key string) (ErrorMargin, bool) {
	m, ok := c.CustomOccupationsErrorMargins.ErrorMargins[key]
	return m, ok
}

// Student is the tenant user record, used for display-name lookup.
type Student struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Client calls the assessment API for one tenant.
type Client struct {
	baseURL  string
	tenantID string
	tokens   TokenProvider
	client   *http.Client
	logger   logger.Logger
}

func NewClient(baseURL, tenantID string, tokens TokenProvider, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		tenantID: tenantID,
		tokens:   tokens,
		client:   &http.Client{Timeout: timeout},
		logger:   log.WithFields(map[string]interface{}{"component": "principles"}),
	}
}

// PpmScores fetches the account's trait scores.
func (c *Client) PpmScores(ctx context.Context, accountID string) (*PpmScores, error) {
	var scores PpmScores
	if err := c.get(ctx, c.userPath(accountID)+"/ppm_scores", &scores); err != nil {
		return nil, err
	}
	return &scores, nil
}

// Results fetches the account's full assessment profile as raw JSON; the
// profile is embedded verbatim into prompts, so no typed decoding.
func (c *Client) Results(ctx context.Context, accountID string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.get(ctx, c.userPath(accountID)+"/assessment_results", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Student fetches the tenant user record for display-name lookup.
func (c *Client) Student(ctx context.Context, accountID string) (*Student, error) {
	var student Student
	if err := c.get(ctx, c.userPath(accountID), &student); err != nil {
		return nil, err
	}
	return &student, nil
}

// CompatibilityScore submits a target weighting vector and returns the
// computed error margins.
func (c *Client) CompatibilityScore(ctx context.Context, accountID string, weightings map[string]map[string]string) (*CompatibilityScore, error) {
	endpoint := c.userPath(accountID) + "/custom_occupations_error_margins"

	payload, err := json.Marshal(map[string]interface{}{
		"occupationWeightings": weightings,
	})
	if err != nil {
		return nil, errors.NewPrinciplesAPIError(endpoint, err)
	}

	body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return nil, err
	}

	var score CompatibilityScore
	if err := json.Unmarshal(body, &score); err != nil {
		return nil, errors.NewPrinciplesAPIError(endpoint, fmt.Errorf("decode response: %w", err))
	}
	score.Raw = body
	return &score, nil
}

func (c *Client) userPath(accountID string) string {
	return fmt.Sprintf("/api/v1/integration_account_tenants/%s/users/%s", c.tenantID, accountID)
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewPrinciplesAPIError(endpoint, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody *bytes.Buffer
	if payload != nil {
		reqBody = bytes.NewBuffer(payload)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, errors.NewPrinciplesAPIError(endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.NewPrinciplesAPIError(endpoint, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, errors.NewPrinciplesAPIError(endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("assessment API error", map[string]interface{}{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		})
		return nil, errors.NewPrinciplesAPIError(endpoint,
			fmt.Errorf("API response: %d %s", resp.StatusCode, buf.String()))
	}

	return buf.Bytes(), nil
}
