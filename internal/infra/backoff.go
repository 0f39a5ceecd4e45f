package infra

import "time"

const (
	backoffBase = 1 * time.Second
	backoffMax  = 60 * time.Second
)

// CalculateBackoff returns an exponential delay for the given retry count,
// capped at backoffMax. Used by caller-level reconnect policies; the
// pipeline core never retries on its own.
func CalculateBackoff(retry int) time.Duration {
	delay := backoffBase
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay >= backoffMax {
			return backoffMax
		}
	}
	return delay
}
