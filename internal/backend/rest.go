package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"geauxclean/internal/domain"
)

// RestStore talks to the hosted record store's REST surface. Each table is
// addressed as {baseURL}/rest/v1/{table} with column filters in the query
// string, PostgREST style.
type RestStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	token      func() string // bearer token for the active session, may return ""
}

// NewRestStore constructs a store client. token may be nil for anonymous
// access.
func NewRestStore(baseURL, apiKey string, token func() string) *RestStore {
	return &RestStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      token,
	}
}

func (s *RestStore) Select(ctx context.Context, table string, filters []domain.Filter, order *domain.Order, dest any) error {
	q := url.Values{}
	q.Set("select", "*")
	for _, f := range filters {
		q.Set(f.Column, encodeFilter(f))
	}
	if order != nil {
		dir := "asc"
		if order.Descending {
			dir = "desc"
		}
		q.Set("order", order.Column+"."+dir)
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", s.baseURL, url.PathEscape(table), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return s.do(req, table, "select", dest)
}

func (s *RestStore) Insert(ctx context.Context, table string, row any, dest any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, url.PathEscape(table))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return s.doSingle(req, table, "insert", dest)
}

func (s *RestStore) Update(ctx context.Context, table string, id string, patch map[string]any, dest any) error {
	data, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", s.baseURL, url.PathEscape(table), url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
	return s.doSingle(req, table, "update", dest)
}

func (s *RestStore) Delete(ctx context.Context, table string, id string) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s?id=eq.%s", s.baseURL, url.PathEscape(table), url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	return s.do(req, table, "delete", nil)
}

func encodeFilter(f domain.Filter) string {
	if f.Op == "in" {
		vals, _ := f.Value.([]any)
		parts := make([]string, 0, len(vals))
		for _, v := range vals {
			parts = append(parts, fmt.Sprint(v))
		}
		return "in.(" + strings.Join(parts, ",") + ")"
	}
	op := f.Op
	if op == "" {
		op = "eq"
	}
	return op + "." + fmt.Sprint(f.Value)
}

func (s *RestStore) addHeaders(req *http.Request) {
	req.Header.Set("apikey", s.apiKey)
	token := s.apiKey
	if s.token != nil {
		if t := s.token(); t != "" {
			token = t
		}
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func (s *RestStore) do(req *http.Request, table, op string, out any) error {
	s.addHeaders(req)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("store %s %s: %w", op, table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("store %s %s: read body: %w", op, table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StoreError{Table: table, Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("store %s %s: decode: %w", op, table, err)
	}
	return nil
}

// doSingle unwraps the one-element array the REST surface returns for
// writes with return=representation.
func (s *RestStore) doSingle(req *http.Request, table, op string, out any) error {
	if out == nil {
		return s.do(req, table, op, nil)
	}
	var raw json.RawMessage
	if err := s.do(req, table, op, &raw); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			return fmt.Errorf("store %s %s: decode rows: %w", op, table, err)
		}
		if len(rows) == 0 {
			return ErrNotFound
		}
		raw = rows[0]
	}
	return json.Unmarshal(raw, out)
}
