package random

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"trivia-service/internal/domain"
)

// DiceAPI rolls dice remotely against a roll.diceapi.com compatible endpoint.
type DiceAPI struct {
	baseURL string
	client  *http.Client
}

func NewDiceAPI(baseURL string, client *http.Client) *DiceAPI {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &DiceAPI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type diceResponse struct {
	Success bool `json:"success"`
	Dice    []struct {
		Value int    `json:"value"`
		Type  string `json:"type"`
	} `json:"dice"`
}

func (d *DiceAPI) Roll(ctx context.Context, sides int) (int, error) {
	url := fmt.Sprintf("%s/json/d%d", d.baseURL, sides)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build dice request: %v", domain.ErrProvider, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: roll d%d: %v", domain.ErrProvider, sides, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: roll d%d: status %d", domain.ErrProvider, sides, resp.StatusCode)
	}
	var payload diceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode d%d roll: %v", domain.ErrProvider, sides, err)
	}
	if len(payload.Dice) == 0 {
		return 0, fmt.Errorf("%w: roll d%d: no dice in response", domain.ErrProvider, sides)
	}
	return payload.Dice[0].Value, nil
}

// Local rolls dice in-process. It never fails.
type Local struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewLocal(seed int64) *Local {
	return &Local{rnd: rand.New(rand.NewSource(seed))}
}

func (l *Local) Roll(_ context.Context, sides int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Intn(sides) + 1, nil
}
