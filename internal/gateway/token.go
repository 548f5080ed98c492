package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// TokenSource supplies a bearer token for provider calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// AccessTokenSource fetches and caches an access token from the provider's
// token endpoint, refreshing it shortly before expiry.
type AccessTokenSource struct {
	baseURL         string
	clientID        string
	clientSecret    string
	subscriptionKey string
	httpClient      *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewAccessTokenSource creates a token source for the given credentials.
func NewAccessTokenSource(baseURL, clientID, clientSecret, subscriptionKey string, httpClient *http.Client) *AccessTokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &AccessTokenSource{
		baseURL:         baseURL,
		clientID:        clientID,
		clientSecret:    clientSecret,
		subscriptionKey: subscriptionKey,
		httpClient:      httpClient,
	}
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// Token returns a cached token or fetches a new one.
func (s *AccessTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && time.Now().Before(s.expiresAt) {
		return s.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/accesstoken/get", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("client_id", s.clientID)
	req.Header.Set("client_secret", s.clientSecret)
	req.Header.Set("Ocp-Apim-Subscription-Key", s.subscriptionKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("token request: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Status: resp.StatusCode, Code: "token", Message: "access token request rejected"}
	}

	var body accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", &Error{Message: fmt.Sprintf("token decode: %v", err)}
	}
	if body.AccessToken == "" {
		return "", &Error{Message: "empty access token in response"}
	}

	ttl := 50 * time.Minute
	if secs, err := time.ParseDuration(body.ExpiresIn + "s"); err == nil && secs > time.Minute {
		// Refresh one minute early.
		ttl = secs - time.Minute
	}

	s.token = body.AccessToken
	s.expiresAt = time.Now().Add(ttl)
	return s.token, nil
}
