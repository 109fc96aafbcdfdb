package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-service/internal/app"
	"trivia-service/internal/domain"
)

// fillScript writes a user entry only if no write has bumped the user's
// generation since the reader sampled it.
var fillScript = redis.NewScript(`
local cur = redis.call("GET", KEYS[2]) or ""
if cur ~= ARGV[2] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[1])
end
return 1
`)

// UserCache is a read-through cache in front of an app.Store.
// Users are stored as JSON:           SET trivia:user:{id} {json}
// Usernames resolve to an id through: SET trivia:username:{username} {id}
// Write generations:                  INCR trivia:user:{id}:gen
// Every write that touches a user bumps its generation and drops its entry.
// A read fills the cache only if the generation it sampled before loading
// from the store is still current. Question methods pass through.
type UserCache struct {
	app.Store

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewUserCache(store app.Store, client *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{
		Store:  store,
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *UserCache) GetUser(ctx context.Context, id int64) (domain.User, error) {
	if u, ok := c.cached(ctx, id); ok {
		return u, nil
	}

	result, err, _ := c.sf.Do(c.userKey(id), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if u, ok := c.cached(ctx, id); ok {
			return u, nil
		}
		gen, err := c.generation(ctx, id)
		if err != nil {
			// cache unavailable; serve from the store without filling
			return c.Store.GetUser(ctx, id)
		}
		u, err := c.Store.GetUser(ctx, id)
		if err != nil {
			return domain.User{}, err
		}
		c.fill(ctx, u, gen)
		return u, nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return result.(domain.User), nil
}

func (c *UserCache) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	nameKey := c.usernameKey(username)
	if raw, err := c.client.Get(ctx, nameKey).Result(); err == nil {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			u, err := c.GetUser(ctx, id)
			if err == nil && u.Username == username {
				return u, nil
			}
		}
		// renamed or deleted since the mapping was written
		_ = c.client.Del(ctx, nameKey).Err()
	}

	u, err := c.Store.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, err
	}
	// Only the id mapping is cached here: the user's generation was not
	// sampled before this read, so its counters may already be stale.
	_ = c.client.Set(ctx, nameKey, u.ID, c.ttlWithJitter()).Err()
	return u, nil
}

func (c *UserCache) UpdateUser(ctx context.Context, id int64, username, email string) (domain.User, error) {
	u, err := c.Store.UpdateUser(ctx, id, username, email)
	c.invalidate(ctx, id)
	return u, err
}

func (c *UserCache) DeleteUser(ctx context.Context, id int64) (domain.User, error) {
	u, err := c.Store.DeleteUser(ctx, id)
	c.invalidate(ctx, id)
	if err == nil {
		_ = c.client.Del(ctx, c.usernameKey(u.Username)).Err()
	}
	return u, err
}

func (c *UserCache) SettleAnswer(ctx context.Context, key string, userID int64, outcome domain.Outcome) (domain.User, error) {
	u, err := c.Store.SettleAnswer(ctx, key, userID, outcome)
	if err == nil {
		c.invalidate(ctx, userID)
	}
	return u, err
}

func (c *UserCache) cached(ctx context.Context, id int64) (domain.User, bool) {
	raw, err := c.client.Get(ctx, c.userKey(id)).Bytes()
	if err != nil {
		return domain.User{}, false
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.User{}, false
	}
	return u, true
}

// generation returns the user's current write generation, "" if none was recorded.
func (c *UserCache) generation(ctx context.Context, id int64) (string, error) {
	gen, err := c.client.Get(ctx, c.genKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

func (c *UserCache) fill(ctx context.Context, u domain.User, gen string) {
	raw, err := json.Marshal(u)
	if err != nil {
		return
	}
	ttl := c.ttlWithJitter()
	keys := []string{c.userKey(u.ID), c.genKey(u.ID)}
	filled, err := fillScript.Run(ctx, c.client, keys, raw, gen, ttl.Milliseconds()).Int()
	if err != nil || filled == 0 {
		return
	}
	_ = c.client.Set(ctx, c.usernameKey(u.Username), u.ID, ttl).Err()
}

func (c *UserCache) invalidate(ctx context.Context, id int64) {
	genKey := c.genKey(id)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, genKey)
	if c.ttl > 0 {
		// outlives any entry filled under the previous generation
		pipe.PExpire(ctx, genKey, 2*c.ttl)
	}
	pipe.Del(ctx, c.userKey(id))
	_, _ = pipe.Exec(ctx)
}

func (c *UserCache) userKey(id int64) string {
	return "trivia:user:" + strconv.FormatInt(id, 10)
}

func (c *UserCache) genKey(id int64) string {
	return c.userKey(id) + ":gen"
}

func (c *UserCache) usernameKey(username string) string {
	return "trivia:username:" + username
}

func (c *UserCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
