// Package kv is the key-value contract the coin and renewal flows persist through.
// Values are JSON encoded so every backend stores them as plain strings.
package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is implemented by the Postgres, DynamoDB and memory backends.
// Get reports ok=false for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

func CoinsKey(userID int64) string {
	return "coins-" + strconv.FormatInt(userID, 10)
}

func DailyLinkpaysKey(userID int64) string {
	return "dailylinkpays-" + strconv.FormatInt(userID, 10)
}

func LastRenewalKey(serverID int64) string {
	return "lastrenewal-" + strconv.FormatInt(serverID, 10)
}

func SuspendedKey(serverID int64) string {
	return "suspended-" + strconv.FormatInt(serverID, 10)
}

// GetInt64 returns 0 for a missing key.
func GetInt64(ctx context.Context, s Store, key string) (int64, bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	var n int64
	if err := json.UnmarshalFromString(raw, &n); err != nil {
		return 0, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return n, true, nil
}

func SetInt64(ctx context.Context, s Store, key string, n int64) error {
	return s.Set(ctx, key, strconv.FormatInt(n, 10))
}

// GetBool treats a missing key as false.
func GetBool(ctx context.Context, s Store, key string) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	var b bool
	if err := json.UnmarshalFromString(raw, &b); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return b, nil
}

func SetBool(ctx context.Context, s Store, key string, b bool) error {
	return s.Set(ctx, key, strconv.FormatBool(b))
}

// GetTime reads a Unix-millisecond timestamp.
func GetTime(ctx context.Context, s Store, key string) (time.Time, bool, error) {
	ms, ok, err := GetInt64(ctx, s, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	return time.UnixMilli(ms), true, nil
}

func SetTime(ctx context.Context, s Store, key string, t time.Time) error {
	return SetInt64(ctx, s, key, t.UnixMilli())
}

// DailyCount is a counter stamped with the day it was last written on.
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

const dayLayout = "2006-01-02"

func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

// GetDaily returns today's count; a value stamped with another day reads as 0.
// A bare integer was written before counters were day-stamped, so its day is
// unknown and it reads as stale too; the next SetDaily replaces it.
func GetDaily(ctx context.Context, s Store, key string, now time.Time, loc *time.Location) (int, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}

	if _, err := strconv.Atoi(raw); err == nil {
		return 0, nil
	}

	var dc DailyCount
	if err := json.UnmarshalFromString(raw, &dc); err != nil {
		return 0, fmt.Errorf("decode %s: %w", key, err)
	}
	if dc.Day != Day(now, loc) {
		return 0, nil
	}
	return dc.Count, nil
}

func SetDaily(ctx context.Context, s Store, key string, count int, now time.Time, loc *time.Location) error {
	raw, err := json.MarshalToString(DailyCount{Day: Day(now, loc), Count: count})
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}
