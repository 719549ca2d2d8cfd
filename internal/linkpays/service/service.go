package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dashgg/internal/kv"
	"dashgg/internal/linkpays"
	"dashgg/internal/metrics"
)

var (
	ErrCooldown      = errors.New("linkpays cooldown active")
	ErrDailyLimit    = errors.New("daily linkpays limit reached")
	ErrNoCredentials = errors.New("no shortener API key configured")
	ErrShortener     = errors.New("shortener request failed")
	ErrMissingCode   = errors.New("missing redeem code")
	ErrInvalidCode   = errors.New("invalid or already redeemed code")
	ErrTooEarly      = errors.New("link completed too quickly")
)

type Shortener interface {
	Ready() bool
	Shorten(ctx context.Context, link, alias string) (string, error)
}

type Settings struct {
	// PublicURL is where the redeem route is reachable, without a trailing slash.
	PublicURL         string
	AliasPrefix       string
	DailyLimit        int
	Cooldown          time.Duration
	MinTimeToComplete time.Duration
	Coins             int64
	CacheSize         int
	Location          *time.Location
}

type Service struct {
	store     kv.Store
	locks     *kv.Locks
	shortener Shortener
	settings  Settings
	codes     *codeTable
	now       func() time.Time
}

func NewService(store kv.Store, locks *kv.Locks, shortener Shortener, settings Settings) *Service {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Service{
		store:     store,
		locks:     locks,
		shortener: shortener,
		settings:  settings,
		codes:     newCodeTable(settings.CacheSize),
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Generate issues a fresh redeem code for userID and returns the shortened
// link that leads to it.
func (s *Service) Generate(ctx context.Context, userID int64) (string, error) {
	link, err := s.generate(ctx, userID)
	metrics.LinkpaysGeneratedTotal.WithLabelValues(generateResult(err)).Inc()
	return link, err
}

func (s *Service) generate(ctx context.Context, userID int64) (string, error) {
	now := s.now()
	if s.codes.onCooldown(userID, now) {
		return "", ErrCooldown
	}

	daily, err := kv.GetDaily(ctx, s.store, kv.DailyLinkpaysKey(userID), now, s.settings.Location)
	if err != nil {
		return "", err
	}
	if daily >= s.settings.DailyLimit {
		return "", ErrDailyLimit
	}

	if !s.shortener.Ready() {
		log.Printf("LinkpaysService: no shortener API key configured, check LINKPAYS_API_KEYS")
		return "", ErrNoCredentials
	}

	code, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	alias, err := randomCode()
	if err != nil {
		return "", fmt.Errorf("generate alias: %w", err)
	}

	s.codes.put(userID, linkpays.Code{Value: code, Generated: now})

	link := s.settings.PublicURL + "/linkpays/redeem/" + code
	short, err := s.shortener.Shorten(ctx, link, s.settings.AliasPrefix+alias)
	if err != nil {
		log.Printf("LinkpaysService: shortening link for user %d failed: %v", userID, err)
		return "", fmt.Errorf("%w: %v", ErrShortener, err)
	}
	return short, nil
}

// Redeem credits userID once per generated code, provided enough time passed
// since the link was generated.
func (s *Service) Redeem(ctx context.Context, userID int64, code string) error {
	err := s.redeem(ctx, userID, code)
	metrics.LinkpaysRedeemedTotal.WithLabelValues(redeemResult(err)).Inc()
	return err
}

func (s *Service) redeem(ctx context.Context, userID int64, code string) error {
	now := s.now()
	if s.codes.onCooldown(userID, now) {
		return ErrCooldown
	}
	if code == "" {
		return ErrMissingCode
	}

	// The code is spent here, even if the time check below rejects it.
	issued, ok := s.codes.redeem(userID, code)
	if !ok {
		return ErrInvalidCode
	}
	if now.Sub(issued.Generated) < s.settings.MinTimeToComplete {
		return ErrTooEarly
	}

	s.codes.setCooldown(userID, now.Add(s.settings.Cooldown), now)

	unlock := s.locks.Lock(kv.CoinsKey(userID))
	defer unlock()

	dailyKey := kv.DailyLinkpaysKey(userID)
	daily, err := kv.GetDaily(ctx, s.store, dailyKey, now, s.settings.Location)
	if err != nil {
		return err
	}
	if err := kv.SetDaily(ctx, s.store, dailyKey, daily+1, now, s.settings.Location); err != nil {
		return err
	}

	coins, _, err := kv.GetInt64(ctx, s.store, kv.CoinsKey(userID))
	if err != nil {
		return err
	}
	if err := kv.SetInt64(ctx, s.store, kv.CoinsKey(userID), coins+s.settings.Coins); err != nil {
		return err
	}

	metrics.CoinsAwardedTotal.Add(float64(s.settings.Coins))
	return nil
}

func generateResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCooldown):
		return "cooldown"
	case errors.Is(err, ErrDailyLimit):
		return "daily_limit"
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrShortener):
		return "shortener_error"
	default:
		return "error"
	}
}

func redeemResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCooldown):
		return "cooldown"
	case errors.Is(err, ErrMissingCode), errors.Is(err, ErrInvalidCode):
		return "invalid"
	case errors.Is(err, ErrTooEarly):
		return "too_early"
	default:
		return "error"
	}
}
