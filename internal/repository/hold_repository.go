package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// HoldRepo is the hold registry: per-user cart membership with a sliding
// TTL, backed by Redis.  Two keyspaces cooperate:
//
//	cart:{userID}        – SET of ticket unit IDs the user currently holds
//	hold:ticket:{id}     – string key owned by exactly one user (SET NX)
//
// The per-ticket key is the authoritative cross-user guard: acquiring a
// hold is a conditional write that fails when any other user already owns
// the key, so two carts can never hold the same unit even if both passed
// the availability pre-check.  The membership set is the listing and
// exclusion surface.  Both keyspaces share one TTL that is refreshed on
// every mutation; expiry reclaims abandoned holds without any sweeper.
type HoldRepo struct {
	rdb *redis.Client
}

// NewHoldRepo returns a HoldRepo bound to the provided Redis client.  The
// client must be non-nil; without Redis the marketplace cannot offer
// carts.
func NewHoldRepo(rdb *redis.Client) *HoldRepo { return &HoldRepo{rdb: rdb} }

func cartKey(userID uint64) string { return "cart:" + strconv.FormatUint(userID, 10) }

func holdKey(ticketID uint64) string { return "hold:ticket:" + strconv.FormatUint(ticketID, 10) }

// Add claims the given ticket units for the user and refreshes the cart
// TTL.  Units already present in the caller's own cart are kept (the call
// stays idempotent).  When any unit is held by another user, nothing new
// is kept: freshly acquired claim keys are released and a
// ClaimConflictError lists the contested IDs.
func (r *HoldRepo) Add(ctx context.Context, userID uint64, ticketIDs []uint64, ttl time.Duration) error {
	me := strconv.FormatUint(userID, 10)
	var acquired []uint64
	var conflicts []uint64
	for _, id := range ticketIDs {
		ok, err := r.rdb.SetNX(ctx, holdKey(id), me, ttl).Result()
		if err != nil {
			r.release(ctx, acquired)
			return err
		}
		if ok {
			acquired = append(acquired, id)
			continue
		}
		owner, err := r.rdb.Get(ctx, holdKey(id)).Result()
		if err != nil && err != redis.Nil {
			r.release(ctx, acquired)
			return err
		}
		if owner == me {
			continue // already in this user's cart
		}
		conflicts = append(conflicts, id)
	}
	if len(conflicts) > 0 {
		r.release(ctx, acquired)
		return &ClaimConflictError{TicketIDs: conflicts}
	}
	if len(ticketIDs) > 0 {
		members := make([]interface{}, len(ticketIDs))
		for i, id := range ticketIDs {
			members[i] = strconv.FormatUint(id, 10)
		}
		if err := r.rdb.SAdd(ctx, cartKey(userID), members...).Err(); err != nil {
			return err
		}
	}
	return r.refreshTTL(ctx, userID, ttl)
}

// Remove drops one unit from the user's cart and releases its claim key.
// It reports whether anything was actually removed; removing an absent
// unit is not an error.
func (r *HoldRepo) Remove(ctx context.Context, userID, ticketID uint64, ttl time.Duration) (bool, error) {
	n, err := r.rdb.SRem(ctx, cartKey(userID), strconv.FormatUint(ticketID, 10)).Result()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	if err := r.rdb.Del(ctx, holdKey(ticketID)).Err(); err != nil {
		return true, err
	}
	return true, r.refreshTTL(ctx, userID, ttl)
}

// Clear empties the user's cart and releases every claim key it held.
func (r *HoldRepo) Clear(ctx context.Context, userID uint64) error {
	ids, err := r.Members(ctx, userID)
	if err != nil {
		return err
	}
	r.release(ctx, ids)
	return r.rdb.Del(ctx, cartKey(userID)).Err()
}

// Members returns the ticket unit IDs currently held by the user.
func (r *HoldRepo) Members(ctx context.Context, userID uint64) ([]uint64, error) {
	raw, err := r.rdb.SMembers(ctx, cartKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue // skip corrupt members rather than failing the read
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AllHeldTicketIDs scans every live cart and returns the union of held
// ticket unit IDs.  This is the hold half of the exclusion set; expired
// carts have already vanished from the keyspace and are not counted.
func (r *HoldRepo) AllHeldTicketIDs(ctx context.Context) (map[uint64]struct{}, error) {
	held := make(map[uint64]struct{})
	iter := r.rdb.Scan(ctx, 0, "cart:*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := r.rdb.SMembers(ctx, iter.Val()).Result()
		if err != nil {
			return nil, err
		}
		for _, s := range raw {
			if id, err := strconv.ParseUint(s, 10, 64); err == nil {
				held[id] = struct{}{}
			}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return held, nil
}

// refreshTTL restarts the sliding lifetime of the user's cart: the
// membership set and every claim key it references get the full TTL
// again.  Called after each successful mutation.
func (r *HoldRepo) refreshTTL(ctx context.Context, userID uint64, ttl time.Duration) error {
	ids, err := r.Members(ctx, userID)
	if err != nil {
		return err
	}
	pipe := r.rdb.Pipeline()
	pipe.Expire(ctx, cartKey(userID), ttl)
	for _, id := range ids {
		pipe.Expire(ctx, holdKey(id), ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *HoldRepo) release(ctx context.Context, ticketIDs []uint64) {
	if len(ticketIDs) == 0 {
		return
	}
	keys := make([]string, len(ticketIDs))
	for i, id := range ticketIDs {
		keys[i] = holdKey(id)
	}
	// Best effort; orphaned keys expire on their own.
	_ = r.rdb.Del(ctx, keys...).Err()
}
