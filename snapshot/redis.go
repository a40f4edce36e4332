package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// saveScript writes the content blob if absent and records the write order.
// A known key is only re-ranked when it is not already the latest.
//
// KEYS: blob, index, rev counter, written-at hash
// ARGV: content, content fingerprint, now (unix ms)
var saveScript = redis.NewScript(`
local created = redis.call('SETNX', KEYS[1], ARGV[1])
local top = redis.call('ZREVRANGE', KEYS[2], 0, 0)
if created == 0 and top[1] == ARGV[2] then
	return 0
end
local rev = redis.call('INCR', KEYS[3])
redis.call('ZADD', KEYS[2], rev, ARGV[2])
redis.call('HSET', KEYS[4], ARGV[2], ARGV[3])
return created
`)

// RedisStore stores snapshot blobs under "{ns}:{target}:snap:{target}_{content}".
// All keys of a target share the "{target}" hash tag so the save script is
// cluster-safe.
type RedisStore struct {
	rdb  redis.UniversalClient
	ns   string
	opts options
}

// NewRedisStore returns a store using rdb with keys prefixed by namespace
// (typically the bucket name). The caller keeps ownership of rdb.
func NewRedisStore(rdb redis.UniversalClient, namespace string, opts ...Option) *RedisStore {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	if namespace == "" {
		namespace = "pagewatch"
	}
	return &RedisStore{rdb: rdb, ns: namespace, opts: o}
}

func (s *RedisStore) blobKey(targetFP, contentFP string) string {
	return fmt.Sprintf("%s:{%s}:snap:%s", s.ns, targetFP, Key(targetFP, contentFP))
}

func (s *RedisStore) indexKey(targetFP string) string {
	return fmt.Sprintf("%s:{%s}:index", s.ns, targetFP)
}

func (s *RedisStore) revKey(targetFP string) string {
	return fmt.Sprintf("%s:{%s}:rev", s.ns, targetFP)
}

func (s *RedisStore) writtenKey(targetFP string) string {
	return fmt.Sprintf("%s:{%s}:written", s.ns, targetFP)
}

// Latest implements Store.
func (s *RedisStore) Latest(ctx context.Context, targetFP string) (*Snapshot, error) {
	top, err := s.rdb.ZRevRangeWithScores(ctx, s.indexKey(targetFP), 0, 0).Result()
	if err != nil {
		return nil, &Error{Op: "latest", Err: err}
	}
	if len(top) == 0 {
		return nil, nil
	}
	contentFP, _ := top[0].Member.(string)

	content, err := s.rdb.Get(ctx, s.blobKey(targetFP, contentFP)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			err = fmt.Errorf("index references missing blob %s", Key(targetFP, contentFP))
		}
		return nil, &Error{Op: "latest", Err: err}
	}

	written, err := s.writtenAt(ctx, targetFP, contentFP)
	if err != nil {
		return nil, &Error{Op: "latest", Err: err}
	}

	return &Snapshot{
		TargetFP:  targetFP,
		ContentFP: contentFP,
		Content:   content,
		Size:      len(content),
		WrittenAt: written,
		Rev:       int64(top[0].Score),
	}, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, targetFP, content string) (bool, error) {
	contentFP := Fingerprint(content)
	keys := []string{
		s.blobKey(targetFP, contentFP),
		s.indexKey(targetFP),
		s.revKey(targetFP),
		s.writtenKey(targetFP),
	}
	created, err := saveScript.Run(ctx, s.rdb, keys, content, contentFP, s.opts.now().UnixMilli()).Int()
	if err != nil {
		return false, &Error{Op: "save", Err: err}
	}
	return created == 1, nil
}

// History implements Store.
func (s *RedisStore) History(ctx context.Context, targetFP string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.rdb.ZRevRangeWithScores(ctx, s.indexKey(targetFP), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, &Error{Op: "history", Err: err}
	}

	out := make([]Snapshot, 0, len(entries))
	for _, z := range entries {
		contentFP, _ := z.Member.(string)
		size, err := s.rdb.StrLen(ctx, s.blobKey(targetFP, contentFP)).Result()
		if err != nil {
			return nil, &Error{Op: "history", Err: err}
		}
		written, err := s.writtenAt(ctx, targetFP, contentFP)
		if err != nil {
			return nil, &Error{Op: "history", Err: err}
		}
		out = append(out, Snapshot{
			TargetFP:  targetFP,
			ContentFP: contentFP,
			Size:      int(size),
			WrittenAt: written,
			Rev:       int64(z.Score),
		})
	}
	return out, nil
}

func (s *RedisStore) writtenAt(ctx context.Context, targetFP, contentFP string) (time.Time, error) {
	raw, err := s.rdb.HGet(ctx, s.writtenKey(targetFP), contentFP).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse written_at: %w", err)
	}
	return time.UnixMilli(ms), nil
}

// Close is a no-op; the caller owns the client.
func (s *RedisStore) Close() error { return nil }

// RedisConfig holds connection settings for DialRedis.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ErrEmptyRedisAddr is returned by DialRedis when no address is configured.
var ErrEmptyRedisAddr = errors.New("snapshot: redis address is required")

// DialRedis connects to Redis and verifies the connection with PING.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, ErrEmptyRedisAddr
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, &Error{Op: "dial", Err: err}
	}
	return rdb, nil
}
