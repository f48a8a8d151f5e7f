package wb

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy: Retries повторов сверх первой попытки,
// постоянная пауза Delay, каждая попытка ограничена Timeout.
type Policy struct {
	Retries uint64
	Delay   time.Duration
	Timeout time.Duration

	// Sleep подменяется в тестах; по умолчанию ждёт на таймере с учётом ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry вызывается перед паузой, attempt — номер неудавшейся попытки (с 1).
	OnRetry func(attempt int, err error)
}

func (p Policy) backoff() retry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		// NewConstant паникует на нуле
		delay = time.Nanosecond
	}
	return retry.WithMaxRetries(p.Retries, retry.NewConstant(delay))
}

// Do выполняет fn до Retries+1 раз. Возвращает число сделанных попыток
// и последнюю ошибку. Отмена ctx прерывает и попытку, и ожидание.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) (int, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	b := p.backoff()

	attempt := 0
	for {
		attempt++
		err := runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return attempt, nil
		}
		if ctx.Err() != nil {
			return attempt, err
		}

		next, stop := b.Next()
		if stop {
			return attempt, err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
		if p.Delay > 0 {
			if serr := sleep(ctx, next); serr != nil {
				return attempt, err
			}
		}
	}
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(actx)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
