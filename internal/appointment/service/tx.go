package service

import (
	"context"
	"sync"
	"time"

	dErrors "k9hope/pkg/domain-errors"
)

// DonationTx provides the transactional boundary that pairs an appointment
// completion with the donor aggregate update. Implementations may wrap a
// database transaction or, in-memory, a lock keyed by donor.
type DonationTx interface {
	RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// shardedTx provides fine-grained locking using sharded mutexes. Operations
// are distributed across N shards based on a hash of the key (donor id), so
// completions for the same donor serialize while unrelated donors proceed
// concurrently.
const numTxShards = 128

// defaultTxTimeout is the maximum duration for a completion transaction.
const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numTxShards]sync.Mutex
	timeout time.Duration
}

// NewShardedTx returns an in-memory DonationTx for deployments without a
// database. Mutations run under the shard lock take effect immediately; there
// is no rollback, so callers order side effects accordingly.
func NewShardedTx() DonationTx {
	return &shardedTx{}
}

func (t *shardedTx) RunInTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := t.selectShard(key)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

func (t *shardedTx) selectShard(key string) int {
	if key == "" {
		return 0
	}
	return int(hashKey(key) % numTxShards)
}

// hashKey uses FNV-1a for better hash distribution than simple multiply-add.
func hashKey(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
