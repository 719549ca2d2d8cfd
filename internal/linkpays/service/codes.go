package service

import (
	"crypto/rand"
	"sync"
	"time"

	"dashgg/internal/linkpays"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	codeLength   = 8
)

// randomCode draws from codeAlphabet with rejection sampling so every
// character is equally likely.
func randomCode() (string, error) {
	const limit = 256 - 256%len(codeAlphabet)

	out := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(out) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(out) == codeLength {
				break
			}
		}
	}
	return string(out), nil
}

// codeTable holds pending codes and cooldowns in process memory. Both maps are
// capped at max entries; codes evict the oldest generated, cooldowns drop
// expired entries first and then the one ending soonest.
type codeTable struct {
	mu        sync.Mutex
	max       int
	codes     map[int64]linkpays.Code
	cooldowns map[int64]time.Time
}

func newCodeTable(max int) *codeTable {
	if max <= 0 {
		max = 10000
	}
	return &codeTable{
		max:       max,
		codes:     make(map[int64]linkpays.Code),
		cooldowns: make(map[int64]time.Time),
	}
}

// onCooldown clears an expired cooldown as a side effect.
func (t *codeTable) onCooldown(userID int64, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	until, ok := t.cooldowns[userID]
	if !ok {
		return false
	}
	if until.After(now) {
		return true
	}
	delete(t.cooldowns, userID)
	return false
}

func (t *codeTable) setCooldown(userID int64, until, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.cooldowns[userID]; !ok && len(t.cooldowns) >= t.max {
		t.pruneCooldowns(now)
	}
	t.cooldowns[userID] = until
}

func (t *codeTable) pruneCooldowns(now time.Time) {
	var soonestID int64
	var soonest time.Time
	for id, until := range t.cooldowns {
		if !until.After(now) {
			delete(t.cooldowns, id)
			continue
		}
		if soonest.IsZero() || until.Before(soonest) {
			soonestID, soonest = id, until
		}
	}
	if len(t.cooldowns) >= t.max {
		delete(t.cooldowns, soonestID)
	}
}

func (t *codeTable) put(userID int64, c linkpays.Code) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.codes[userID]; !ok && len(t.codes) >= t.max {
		var oldestID int64
		var oldest time.Time
		for id, existing := range t.codes {
			if oldest.IsZero() || existing.Generated.Before(oldest) {
				oldestID, oldest = id, existing.Generated
			}
		}
		delete(t.codes, oldestID)
	}
	t.codes[userID] = c
}

// redeem marks the user's code redeemed if value matches an unredeemed code.
func (t *codeTable) redeem(userID int64, value string) (linkpays.Code, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.codes[userID]
	if !ok || c.Value != value || c.Redeemed {
		return linkpays.Code{}, false
	}
	c.Redeemed = true
	t.codes[userID] = c
	return c, true
}

func (t *codeTable) size() (codes, cooldowns int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.codes), len(t.cooldowns)
}
