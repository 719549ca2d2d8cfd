package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"dashgg/internal/kv"
	"dashgg/internal/metrics"
	"dashgg/internal/pterodactyl/entity"
	"dashgg/internal/renewal"
)

var (
	ErrDisabled        = errors.New("renewals are currently disabled")
	ErrMissingID       = errors.New("missing server id")
	ErrNotOwned        = errors.New("no server with that id was found")
	ErrCannotAfford    = errors.New("not enough coins to renew")
	ErrUnsuspendFailed = errors.New("panel refused to unsuspend the server")
)

type PanelClient interface {
	Suspend(ctx context.Context, serverID int64) bool
	Unsuspend(ctx context.Context, serverID int64) bool
	ListServers(ctx context.Context) ([]entity.Server, error)
	UserServers(ctx context.Context, panelUserID int64) ([]entity.Server, error)
}

type Settings struct {
	Enabled   bool
	DelayDays int
	Cost      int64
}

type Service struct {
	store    kv.Store
	panel    PanelClient
	settings Settings
	locks    *kv.Locks
	now      func() time.Time
}

// NewService shares locks with every other writer of the coin balances.
func NewService(store kv.Store, locks *kv.Locks, panel PanelClient, settings Settings) *Service {
	return &Service{
		store:    store,
		panel:    panel,
		settings: settings,
		locks:    locks,
		now:      time.Now,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Enabled() bool {
	return s.settings.Enabled
}

func (s *Service) delay() time.Duration {
	return time.Duration(s.settings.DelayDays) * 24 * time.Hour
}

// serverFor checks the flag, parses the id and confirms owner holds that server,
// in the order the dashboard reports those failures.
func (s *Service) serverFor(ctx context.Context, owner renewal.Owner, rawID string) (int64, error) {
	if !s.settings.Enabled {
		return 0, ErrDisabled
	}
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return 0, ErrMissingID
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, ErrNotOwned
	}

	servers, err := s.panel.UserServers(ctx, owner.PanelUserID)
	if err != nil {
		return 0, fmt.Errorf("fetch servers of panel user %d: %w", owner.PanelUserID, err)
	}
	for _, srv := range servers {
		if srv.ID == id {
			return id, nil
		}
	}
	return 0, ErrNotOwned
}

// Status reports where a server stands in its renewal window.
func (s *Service) Status(ctx context.Context, owner renewal.Owner, rawID string) (*renewal.Status, error) {
	id, err := s.serverFor(ctx, owner, rawID)
	if err != nil {
		return nil, err
	}

	suspended, err := kv.GetBool(ctx, s.store, kv.SuspendedKey(id))
	if err != nil {
		return nil, err
	}
	if suspended {
		return &renewal.Status{State: renewal.StateSuspended, Text: renewal.TextSuspended, Suspended: true}, nil
	}

	last, ok, err := kv.GetTime(ctx, s.store, kv.LastRenewalKey(id))
	if err != nil {
		return nil, err
	}
	if !ok {
		return &renewal.Status{State: renewal.StateNeverRenewed, Text: renewal.TextNeverRenewed, Renewable: true}, nil
	}

	now := s.now()
	if last.After(now) {
		return &renewal.Status{State: renewal.StateCurrent, Text: renewal.TextRenewed, Success: true}, nil
	}

	elapsed := now.Sub(last)
	if elapsed > s.delay() {
		return &renewal.Status{State: renewal.StateGrace, Text: renewal.TextLastChance, Renewable: true}, nil
	}
	return &renewal.Status{
		State:     renewal.StateCurrent,
		Text:      renewal.FormatRemaining(s.delay() - elapsed),
		Renewable: true,
	}, nil
}

// Renew charges the owner and unsuspends the server. The panel is asked first;
// nothing is stored or debited unless it accepts.
func (s *Service) Renew(ctx context.Context, owner renewal.Owner, rawID string) error {
	err := s.renew(ctx, owner, rawID)
	metrics.RenewalsTotal.WithLabelValues(renewResult(err)).Inc()
	return err
}

func (s *Service) renew(ctx context.Context, owner renewal.Owner, rawID string) error {
	id, err := s.serverFor(ctx, owner, rawID)
	if err != nil {
		return err
	}

	// Server before balance, everywhere, so the two locks never deadlock.
	unlockServer := s.locks.Lock(kv.LastRenewalKey(id))
	defer unlockServer()
	unlockUser := s.locks.Lock(kv.CoinsKey(owner.UserID))
	defer unlockUser()

	coins, _, err := kv.GetInt64(ctx, s.store, kv.CoinsKey(owner.UserID))
	if err != nil {
		return err
	}
	if coins < s.settings.Cost {
		return ErrCannotAfford
	}

	if !s.panel.Unsuspend(ctx, id) {
		return ErrUnsuspendFailed
	}

	if err := s.store.Delete(ctx, kv.SuspendedKey(id)); err != nil {
		return s.partial(id, owner, err)
	}
	if err := kv.SetTime(ctx, s.store, kv.LastRenewalKey(id), s.now()); err != nil {
		return s.partial(id, owner, err)
	}
	if err := kv.SetInt64(ctx, s.store, kv.CoinsKey(owner.UserID), coins-s.settings.Cost); err != nil {
		return s.partial(id, owner, err)
	}

	log.Printf("RenewalService: user %d renewed server %d for %d coins", owner.UserID, id, s.settings.Cost)
	return nil
}

func (s *Service) partial(id int64, owner renewal.Owner, err error) error {
	log.Printf("RenewalService: server %d unsuspended for user %d but state write failed: %v", id, owner.UserID, err)
	return fmt.Errorf("store renewal of server %d: %w", id, err)
}

func renewResult(err error) string {
	switch {
	case err == nil:
		return "renewed"
	case errors.Is(err, ErrDisabled):
		return "disabled"
	case errors.Is(err, ErrMissingID), errors.Is(err, ErrNotOwned):
		return "not_owned"
	case errors.Is(err, ErrCannotAfford):
		return "cannot_afford"
	case errors.Is(err, ErrUnsuspendFailed):
		return "unsuspend_failed"
	default:
		return "error"
	}
}

// Sweep suspends every server whose last renewal is older than the delay.
// Servers the panel refuses to suspend are retried on the next tick.
func (s *Service) Sweep(ctx context.Context) error {
	if !s.settings.Enabled {
		return nil
	}
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	servers, err := s.panel.ListServers(ctx)
	if err != nil {
		metrics.SweepRunsTotal.WithLabelValues("fetch_failed").Inc()
		return fmt.Errorf("list servers: %w", err)
	}

	suspended := 0
	for _, srv := range servers {
		if err := ctx.Err(); err != nil {
			metrics.SweepRunsTotal.WithLabelValues("cancelled").Inc()
			return err
		}
		ok, err := s.sweepServer(ctx, srv.ID)
		if err != nil {
			metrics.SweepRunsTotal.WithLabelValues("error").Inc()
			return err
		}
		if ok {
			suspended++
		}
	}

	metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
	if suspended > 0 {
		log.Printf("[sweep] suspended %d of %d servers", suspended, len(servers))
	}
	return nil
}

func (s *Service) sweepServer(ctx context.Context, id int64) (bool, error) {
	unlock := s.locks.Lock(kv.LastRenewalKey(id))
	defer unlock()

	last, ok, err := kv.GetTime(ctx, s.store, kv.LastRenewalKey(id))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	suspended, err := kv.GetBool(ctx, s.store, kv.SuspendedKey(id))
	if err != nil {
		return false, err
	}
	if suspended {
		return false, nil
	}

	now := s.now()
	if !last.Before(now) || now.Sub(last) <= s.delay() {
		return false, nil
	}

	if !s.panel.Suspend(ctx, id) {
		log.Printf("[sweep] panel refused to suspend server %d, retrying next run", id)
		return false, nil
	}
	if err := kv.SetBool(ctx, s.store, kv.SuspendedKey(id), true); err != nil {
		return false, err
	}
	if err := s.store.Delete(ctx, kv.LastRenewalKey(id)); err != nil {
		return false, err
	}

	metrics.ServersSuspendedTotal.Inc()
	log.Printf("[sweep] server %d failed renewal and was suspended", id)
	return true, nil
}
