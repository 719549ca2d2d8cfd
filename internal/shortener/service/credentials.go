package service

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
)

// Credential is one shortener API key and its share of the traffic.
type Credential struct {
	Key    string
	Weight int
}

// ParseCredentials accepts "key" or "key:weight" entries. Weight defaults to 1.
// A trailing ":<digits>" is always read as the weight, so a key that itself ends
// in ":<digits>" must be given with an explicit weight ("abc:123:1").
func ParseCredentials(entries []string) ([]Credential, error) {
	creds := make([]Credential, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		c := Credential{Key: e, Weight: 1}
		if i := strings.LastIndex(e, ":"); i > 0 {
			if w, err := strconv.Atoi(e[i+1:]); err == nil {
				if w <= 0 {
					return nil, fmt.Errorf("credential %q: weight must be positive", e[:i])
				}
				c.Key, c.Weight = e[:i], w
				log.Printf("Shortener key %s: weight %d", maskKey(c.Key), w)
			}
		}
		creds = append(creds, c)
	}
	return creds, nil
}

// maskKey keeps the last four characters so operators can tell keys apart.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// CredentialPool hands out keys by smooth weighted round-robin: over any
// window of sum(weights) picks, each key is chosen exactly weight times.
type CredentialPool struct {
	mu      sync.Mutex
	creds   []Credential
	current []int
	total   int
}

func NewCredentialPool(creds []Credential) *CredentialPool {
	p := &CredentialPool{
		creds:   creds,
		current: make([]int, len(creds)),
	}
	for _, c := range creds {
		p.total += c.Weight
	}
	return p
}

func (p *CredentialPool) Len() int {
	return len(p.creds)
}

// Next returns false when the pool is empty.
func (p *CredentialPool) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.creds) == 0 {
		return "", false
	}

	best := 0
	for i, c := range p.creds {
		p.current[i] += c.Weight
		if p.current[i] > p.current[best] {
			best = i
		}
	}
	p.current[best] -= p.total
	return p.creds[best].Key, true
}
