package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/logger"
	"trivia-service/internal/metrics"
	"trivia-service/internal/random"
)

type stubSource struct {
	content domain.Content
	err     error
}

func (s stubSource) FetchQuestion(context.Context, domain.Difficulty, int) (domain.Content, error) {
	return s.content, s.err
}

var capitalOfFrance = domain.Content{
	Question:         "What is the capital of France?",
	CorrectAnswer:    "Paris",
	IncorrectAnswers: []string{"Lyon", "Nice", "Marseille"},
}

type testEnv struct {
	server  *httptest.Server
	store   *memory.Store
	metrics *metrics.Manager
}

func newTestEnv(t *testing.T, source app.QuestionSource) *testEnv {
	t.Helper()
	store := memory.NewStore()
	m := metrics.NewManager()
	log := logger.Discard()
	trivia := app.NewTriviaService(store, random.NewSelector(random.NewLocal(7)), source,
		app.WithLogger(log), app.WithMetrics(m), app.WithKeyLocker(memory.NewKeyLocker()))
	users := app.NewUserService(store, log)

	srv := httptest.NewServer(NewHandler(trivia, users, WithLogger(log), WithMetrics(m), WithCORS(true)).Routes())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, store: store, metrics: m}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (e *testEnv) createUser(t *testing.T, username string) domain.User {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/user", map[string]string{"username": username, "email": username + "@example.com"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create user: status %d", resp.StatusCode)
	}
	return decode[domain.User](t, resp)
}

func (e *testEnv) nextQuestion(t *testing.T) questionView {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/question", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("question: status %d", resp.StatusCode)
	}
	return decode[questionView](t, resp)
}
