package llm

import (
	"context"
	"crypto/rand"
	"time"
)

const maxBackoff = 8 * time.Second

func randJitter(d time.Duration) time.Duration {
	// Add 0-250ms jitter
	var b [2]byte
	_, _ = rand.Read(b[:])
	j := time.Duration(int(b[0])%250) * time.Millisecond
	return d + j
}

// withRetries executa fn até attempts vezes com backoff exponencial e jitter.
// Para antes se ctx terminar.
func withRetries(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(randJitter(backoff)):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return err
}
