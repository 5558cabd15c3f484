// Package principles is the client for the external personality-assessment
// service: trait scores, raw profile results, and person-to-occupation
// compatibility. Responses are never cached (freshness over performance);
// only the bearer token is.
package principles

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"career-report-workers/internal/common/errors"
	"career-report-workers/internal/common/logger"
)

const tokenScope = "com.principles.kernel/integration_account:use"

// expirySkew refreshes tokens slightly early so an in-flight request never
// carries a token that expires mid-call.
const expirySkew = 30 * time.Second

// TokenProvider yields a valid bearer token for the assessment API.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// CachedTokenProvider performs the client-credentials grant and caches the
// token with its expiry. The cache is owned by the provider instance.
type CachedTokenProvider struct {
	authURL      string
	clientID     string
	clientSecret string
	client       *http.Client
	logger       logger.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewCachedTokenProvider(authURL, clientID, clientSecret string, timeout time.Duration, log logger.Logger) *CachedTokenProvider {
	return &CachedTokenProvider{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
		logger:       log.WithFields(map[string]interface{}{"component": "principles-auth"}),
	}
}

// Token returns the cached token while it is still valid, otherwise
// requests a fresh one.
func (p *CachedTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token != "" && p.expiry.After(time.Now().Add(expirySkew)) {
		return p.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.NewPrinciplesAuthError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.clientID, p.clientSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errors.NewPrinciplesAuthError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewPrinciplesAuthError(fmt.Errorf("token endpoint returned %d", resp.StatusCode))
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", errors.NewPrinciplesAuthError(fmt.Errorf("decode token response: %w", err))
	}
	if body.AccessToken == "" {
		return "", errors.NewPrinciplesAuthError(fmt.Errorf("token endpoint returned empty access_token"))
	}

	p.token = body.AccessToken
	p.expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)

	p.logger.Info("refreshed assessment API token", map[string]interface{}{
		"expiresIn": body.ExpiresIn,
	})

	return p.token, nil
}
