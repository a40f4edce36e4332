// Package snapshot is the content-addressed version store.
//
// A Snapshot is one recorded normalized-content version of a monitored
// target. Snapshots are keyed by (target fingerprint, content fingerprint),
// rendered "{target}_{content}", so re-saving identical content is an
// existence check rather than a second copy. Only the latest snapshot per
// target is ever read back for change detection.
//
// Fingerprints are the first 16 bytes of SHA-256, hex-encoded. That trades a
// theoretical collision risk for fixed-size keys and O(1) existence checks.
package snapshot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Snapshot is one stored content version for a target.
type Snapshot struct {
	TargetFP  string    `json:"target_fp"`
	ContentFP string    `json:"content_fp"`
	Content   string    `json:"-"`
	Size      int       `json:"size"`
	WrittenAt time.Time `json:"written_at"`
	// Rev is the per-target write order. Latest is the highest Rev.
	Rev int64 `json:"rev"`
}

// Key returns the storage key of the snapshot.
func (s *Snapshot) Key() string {
	return Key(s.TargetFP, s.ContentFP)
}

// Store persists snapshots. Implementations must make Save idempotent per
// (targetFP, contentFP) so concurrent checks of the same target can race
// without a lock.
type Store interface {
	// Latest returns the most recently written snapshot for targetFP, or
	// nil, nil if the target was never saved.
	Latest(ctx context.Context, targetFP string) (*Snapshot, error)

	// Save records content for targetFP. created is false when the
	// (targetFP, contentFP) key already existed; in that case no content is
	// rewritten, only the key's write order is refreshed if another
	// version had been written since.
	Save(ctx context.Context, targetFP, content string) (created bool, err error)

	// History lists snapshot metadata for targetFP, newest first. Content
	// is not loaded.
	History(ctx context.Context, targetFP string, limit int) ([]Snapshot, error)

	Close() error
}

// Fingerprint returns the fixed-size hex fingerprint of s.
func Fingerprint(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:16])
}

// Key renders the storage key for a target/content fingerprint pair.
func Key(targetFP, contentFP string) string {
	return targetFP + "_" + contentFP
}

// Error wraps a backend failure. Storage errors are fatal for the current
// check and are not retried by the store.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("snapshot: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DefaultHistoryLimit caps History when limit <= 0.
const DefaultHistoryLimit = 50

type options struct {
	now func() time.Time
}

func defaultOptions() options {
	return options{now: time.Now}
}

// Option configures a Store backend.
type Option func(*options)

// WithClock overrides the write timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}
