package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-service/internal/domain"
)

// OpenTDB response codes.
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
	codeRateLimit     = 5
)

// OpenTDB fetches questions from the Open Trivia Database API.
type OpenTDB struct {
	baseURL  string
	client   *http.Client
	useToken bool
	log      *slog.Logger

	sf    singleflight.Group
	mu    sync.RWMutex
	token string
}

// OpenTDBOption configures an OpenTDB provider.
type OpenTDBOption func(*OpenTDB)

// WithSessionToken makes requests carry an OpenTDB session token so the
// same question is not served twice per token.
func WithSessionToken() OpenTDBOption {
	return func(o *OpenTDB) { o.useToken = true }
}

// WithHTTPClient overrides the default client.
func WithHTTPClient(c *http.Client) OpenTDBOption {
	return func(o *OpenTDB) {
		if c != nil {
			o.client = c
		}
	}
}

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) OpenTDBOption {
	return func(o *OpenTDB) {
		if l != nil {
			o.log = l
		}
	}
}

func NewOpenTDB(baseURL string, opts ...OpenTDBOption) *OpenTDB {
	o := &OpenTDB{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type openTDBResponse struct {
	ResponseCode int `json:"response_code"`
	Results      []struct {
		Difficulty       string   `json:"difficulty"`
		Category         string   `json:"category"`
		Question         string   `json:"question"`
		CorrectAnswer    string   `json:"correct_answer"`
		IncorrectAnswers []string `json:"incorrect_answers"`
	} `json:"results"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

func (o *OpenTDB) FetchQuestion(ctx context.Context, difficulty domain.Difficulty, category int) (domain.Content, error) {
	params := url.Values{}
	params.Set("amount", "1")
	params.Set("category", strconv.Itoa(category))
	params.Set("difficulty", string(difficulty))
	if o.useToken {
		token, err := o.sessionToken(ctx)
		if err != nil {
			return domain.Content{}, err
		}
		params.Set("token", token)
	}

	var payload openTDBResponse
	if err := o.getJSON(ctx, "/api.php?"+params.Encode(), &payload); err != nil {
		return domain.Content{}, err
	}

	switch payload.ResponseCode {
	case codeSuccess:
	case codeTokenNotFound, codeTokenEmpty:
		o.dropToken()
		return domain.Content{}, fmt.Errorf("%w: opentdb session token exhausted (code %d)", domain.ErrProvider, payload.ResponseCode)
	case codeNoResults, codeInvalidParam, codeRateLimit:
		return domain.Content{}, fmt.Errorf("%w: opentdb response code %d", domain.ErrProvider, payload.ResponseCode)
	default:
		return domain.Content{}, fmt.Errorf("%w: opentdb unknown response code %d", domain.ErrProvider, payload.ResponseCode)
	}
	if len(payload.Results) == 0 {
		return domain.Content{}, fmt.Errorf("%w: opentdb returned no results", domain.ErrProvider)
	}

	r := payload.Results[0]
	content := domain.Content{
		Question:         html.UnescapeString(r.Question),
		CorrectAnswer:    html.UnescapeString(r.CorrectAnswer),
		IncorrectAnswers: make([]string, 0, len(r.IncorrectAnswers)),
	}
	for _, a := range r.IncorrectAnswers {
		content.IncorrectAnswers = append(content.IncorrectAnswers, html.UnescapeString(a))
	}
	if err := checkContent(content); err != nil {
		return domain.Content{}, err
	}
	return content, nil
}

// sessionToken returns the cached token, requesting one on first use.
// Concurrent first requests share a single token call. The shared call is
// detached from any one caller's cancellation and bounded by the client
// timeout; each caller still stops waiting when its own ctx is done.
func (o *OpenTDB) sessionToken(ctx context.Context) (string, error) {
	o.mu.RLock()
	token := o.token
	o.mu.RUnlock()
	if token != "" {
		return token, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := o.sf.DoChan("token", func() (interface{}, error) {
		o.mu.RLock()
		cached := o.token
		o.mu.RUnlock()
		if cached != "" {
			return cached, nil
		}

		var resp tokenResponse
		if err := o.getJSON(flightCtx, "/api_token.php?command=request", &resp); err != nil {
			return "", err
		}
		if resp.ResponseCode != codeSuccess || resp.Token == "" {
			return "", fmt.Errorf("%w: opentdb token request failed (code %d)", domain.ErrProvider, resp.ResponseCode)
		}
		o.mu.Lock()
		o.token = resp.Token
		o.mu.Unlock()
		o.log.Debug("opentdb session token acquired")
		return resp.Token, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (o *OpenTDB) dropToken() {
	o.mu.Lock()
	o.token = ""
	o.mu.Unlock()
	o.log.Warn("opentdb session token dropped")
}

func (o *OpenTDB) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrProvider, err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: opentdb request: %v", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: opentdb status %d", domain.ErrProvider, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode opentdb payload: %v", domain.ErrProvider, err)
	}
	return nil
}
