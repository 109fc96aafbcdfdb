package http

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"trivia-service/internal/domain"
)

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, stubSource{content: capitalOfFrance})

	resp := env.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, "/metrics", nil)
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `trivia_http_requests_total{method="GET",route="/healthz",status_code="200"} 1`) {
		t.Fatalf("expected healthz request counted, got:\n%s", body)
	}
}

func TestUserCRUD(t *testing.T) {
	env := newTestEnv(t, stubSource{content: capitalOfFrance})

	u := env.createUser(t, "alice")
	if u.ID == 0 || u.Username != "alice" || u.Score != 0 {
		t.Fatalf("unexpected user %+v", u)
	}

	resp := env.do(t, http.MethodGet, "/user/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	raw := decode[map[string]any](t, resp)
	for _, field := range []string{"id", "username", "email", "score", "questions", "correct_answers"} {
		if _, ok := raw[field]; !ok {
			t.Fatalf("user JSON missing %q: %v", field, raw)
		}
	}

	resp = env.do(t, http.MethodPut, "/user/1", map[string]string{"username": "alicia", "email": "alicia@example.com"})
	if got := decode[domain.User](t, resp); got.Username != "alicia" {
		t.Fatalf("unexpected update %+v", got)
	}

	resp = env.do(t, http.MethodDelete, "/user/1", nil)
	if got := decode[domain.User](t, resp); resp.StatusCode != http.StatusOK || got.Username != "alicia" {
		t.Fatalf("unexpected delete %d %+v", resp.StatusCode, got)
	}

	resp = env.do(t, http.MethodGet, "/user/1", nil)
	if resp.StatusCode != http.StatusNotFound || decode[errorResponse](t, resp).Error != "user_not_found" {
		t.Fatalf("expected user_not_found, got %d", resp.StatusCode)
	}
}

func TestUserErrors(t *testing.T) {
	env := newTestEnv(t, stubSource{content: capitalOfFrance})
	env.createUser(t, "alice")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"duplicate username", http.MethodPost, "/user", map[string]string{"username": "alice", "email": "x@example.com"}, http.StatusConflict, "duplicate_identity"},
		{"missing email", http.MethodPost, "/user", map[string]string{"username": "bob"}, http.StatusBadRequest, "invalid_user"},
		{"broken json", http.MethodPost, "/user", "{", http.StatusBadRequest, "invalid_user"},
		{"bad id", http.MethodGet, "/user/abc", nil, http.StatusBadRequest, "invalid_user"},
		{"unknown id", http.MethodDelete, "/user/99", nil, http.StatusNotFound, "user_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, tc.method, tc.path, tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if got := decode[errorResponse](t, resp); got.Error != tc.code {
				t.Fatalf("expected code %s, got %+v", tc.code, got)
			}
		})
	}
}
