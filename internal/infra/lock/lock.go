// Package lock не даёт двум циклам синхронизации идти одновременно.
package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Locker пытается взять замок без ожидания. ok=false — замок занят.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

// Local держит замок в пределах процесса.
type Local struct {
	mu sync.Mutex
}

func NewLocal() *Local { return &Local{} }

func (l *Local) TryLock(context.Context) (func(), bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return l.mu.Unlock, true, nil
}

// Redis держит замок через SET NX PX, общий для нескольких реплик.
// Пока замок взят, TTL продлевается каждые ttl/3. TTL страхует от упавшего держателя.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// снимаем замок, только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// продлеваем, только если замок всё ещё наш
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl}
}

func (r *Redis) TryLock(ctx context.Context) (func(), bool, error) {
	token, err := newToken()
	if err != nil {
		return nil, false, err
	}
	ok, err := r.client.SetNX(ctx, r.key, token, r.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	if r.ttl > 0 {
		go r.keepAlive(token, stop, done)
	} else {
		// без TTL ключ живёт до unlock
		close(done)
	}

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			close(stop)
			<-done
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, r.client, []string{r.key}, token).Err()
		})
	}
	return unlock, true, nil
}

// keepAlive продлевает TTL, пока не закрыт stop или замок не перешёл к другому.
func (r *Redis) keepAlive(token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	t := time.NewTicker(renewInterval(r.ttl))
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), defaultWriteTimeout)
			n, err := extendScript.Run(ctx, r.client, []string{r.key}, token, r.ttl.Milliseconds()).Int64()
			cancel()
			// ключа нет или он чужой: продлевать больше нечего
			if err == nil && n == 0 {
				return
			}
		}
	}
}

func renewInterval(ttl time.Duration) time.Duration {
	d := ttl / 3
	if d < 10*time.Millisecond {
		d = 10 * time.Millisecond
	}
	return d
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// NewRedisClient собирает клиент и проверяет соединение PING.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	pctx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
