package auth

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelayMs    int  // Base delay in milliseconds
	RandomDelayMs  int  // Random delay range in milliseconds
	DelayOnSuccess bool // If true, delay successful authentications too
}

// TimingDelay pads authentication responses so that unknown users, wrong
// passwords and pending resets take about the same time to answer
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
	}
}

// cryptoRandIntn returns a secure random number in [0, n)
func cryptoRandIntn(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0, err
	}

	return int(binary.BigEndian.Uint64(randomBytes) % uint64(n)), nil
}

// target returns base delay plus a random jitter
func (td *TimingDelay) target() time.Duration {
	delay := time.Duration(td.config.BaseDelayMs) * time.Millisecond
	if td.config.RandomDelayMs > 0 {
		if jitter, err := cryptoRandIntn(td.config.RandomDelayMs); err == nil {
			delay += time.Duration(jitter) * time.Millisecond
		}
	}
	return delay
}

// Wait sleeps for the full delay. Successes are not delayed unless
// DelayOnSuccess is set.
func (td *TimingDelay) Wait(success bool) {
	td.WaitFrom(time.Now(), success)
}

// WaitFrom sleeps until at least the delay has elapsed since startTime, so
// time already spent verifying the password counts towards it
func (td *TimingDelay) WaitFrom(startTime time.Time, success bool) {
	if td == nil || (success && !td.config.DelayOnSuccess) {
		return
	}

	if remaining := td.target() - time.Since(startTime); remaining > 0 {
		time.Sleep(remaining)
	}
}
