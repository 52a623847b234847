package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"geauxclean/internal/models"
)

// RestAuth is the identity provider's password-grant surface. It keeps the
// last issued session in memory so GetSession and the store's bearer token
// reflect the current sign-in without another round trip.
type RestAuth struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu      sync.RWMutex
	session *models.Session
}

func NewRestAuth(baseURL, apiKey string) *RestAuth {
	return &RestAuth{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"msg"`
}

func (a *RestAuth) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*models.Session, error) {
	body := map[string]any{"email": email, "password": password}
	if len(metadata) > 0 {
		body["data"] = metadata
	}
	return a.authCall(ctx, "/auth/v1/signup", body)
}

func (a *RestAuth) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	body := map[string]any{"email": email, "password": password}
	return a.authCall(ctx, "/auth/v1/token?grant_type=password", body)
}

func (a *RestAuth) GetSession(ctx context.Context) (*models.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return nil, nil
	}
	if !a.session.ExpiresAt.IsZero() && a.session.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}
	s := *a.session
	return &s, nil
}

func (a *RestAuth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	session := a.session
	a.session = nil
	a.mu.Unlock()
	if session == nil || session.AccessToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+session.AccessToken)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Token returns the active bearer token for store calls, "" when anonymous.
func (a *RestAuth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session == nil {
		return ""
	}
	return a.session.AccessToken
}

func (a *RestAuth) authCall(ctx context.Context, path string, body map[string]any) (*models.Session, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth call %s: read body: %w", path, err)
	}

	var parsed authResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("auth call %s: decode: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		code := parsed.ErrorCode
		msg := parsed.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, &AuthError{Code: code, Message: msg}
	}

	session := &models.Session{
		UserID:      parsed.User.ID,
		Email:       parsed.User.Email,
		AccessToken: parsed.AccessToken,
	}
	if parsed.ExpiresIn > 0 {
		session.ExpiresAt = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	}

	a.mu.Lock()
	a.session = session
	a.mu.Unlock()

	s := *session
	return &s, nil
}
