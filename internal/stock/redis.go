package stock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"seckill/internal/models"
)

// tryDecrementScript runs the whole duplicate-check / stock-check /
// decrement / record sequence server-side, so it is atomic for every
// concurrent caller regardless of how many processes share the Redis
// instance. Buyers live in a hash keyed by buyer id with the purchase
// time as the value, so a repeat attempt can return the original record.
//
// Returns {2, prior_unix_nano} on duplicate, {1, unix_nano} on success,
// {0, 0} when sold out.
var tryDecrementScript = redis.NewScript(`
    local stock_key = KEYS[1]
    local buyers_key = KEYS[2]
    local buyer_id = ARGV[1]
    local now = ARGV[2]

    local prior = redis.call("HGET", buyers_key, buyer_id)
    if prior then
        return {2, prior}
    end

    local stock = tonumber(redis.call("GET", stock_key))
    if stock and stock > 0 then
        redis.call("DECR", stock_key)
        redis.call("HSET", buyers_key, buyer_id, now)
        return {1, now}
    end

    return {0, "0"}
`)

// RedisStore keeps the counter and buyer set in Redis and relies on a Lua
// script for atomicity, so the no-oversell guarantee spans every process
// pointed at the same instance.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func stockKey(saleID int64) string {
	return fmt.Sprintf("seckill:stock:{%d}", saleID)
}

func buyersKey(saleID int64) string {
	return fmt.Sprintf("seckill:buyers:{%d}", saleID)
}

// PrepareSale seeds the counter if it is not already present. SETNX keeps
// a restart from resurrecting stock that was already sold.
func (s *RedisStore) PrepareSale(ctx context.Context, saleID int64, remaining int) error {
	if err := s.client.SetNX(ctx, stockKey(saleID), remaining, 0).Err(); err != nil {
		return fmt.Errorf("failed to seed stock counter for sale %d: %w", saleID, err)
	}
	return nil
}

func (s *RedisStore) TryDecrement(ctx context.Context, saleID, buyerID int64, now time.Time) (Result, *models.PurchaseRecord, error) {
	keys := []string{stockKey(saleID), buyersKey(saleID)}
	args := []interface{}{
		strconv.FormatInt(buyerID, 10),
		strconv.FormatInt(now.UnixNano(), 10),
	}

	raw, err := tryDecrementScript.Run(ctx, s.client, keys, args...).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to run decrement script: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return 0, nil, fmt.Errorf("unexpected decrement script reply: %T", raw)
	}

	code, ok := reply[0].(int64)
	if !ok {
		return 0, nil, fmt.Errorf("unexpected decrement script code: %T", reply[0])
	}

	switch code {
	case 1, 2:
		at, err := scriptTime(reply[1])
		if err != nil {
			return 0, nil, err
		}
		rec := &models.PurchaseRecord{SaleID: saleID, BuyerID: buyerID, PurchasedAt: at}
		if code == 2 {
			return AlreadyPurchased, rec, nil
		}
		return Decremented, rec, nil
	case 0:
		return OutOfStock, nil, nil
	default:
		return 0, nil, fmt.Errorf("unknown decrement script code: %d", code)
	}
}

func (s *RedisStore) Remaining(ctx context.Context, saleID int64) (int, error) {
	val, err := s.client.Get(ctx, stockKey(saleID)).Int()
	if err == redis.Nil {
		return 0, ErrUnknownSale
	} else if err != nil {
		return 0, fmt.Errorf("failed to read stock counter: %w", err)
	}

	if val < 0 {
		val = 0
	}
	return val, nil
}

func scriptTime(v interface{}) (time.Time, error) {
	str, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected purchase time in script reply: %T", v)
	}
	nanos, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse purchase time %q: %w", str, err)
	}
	return time.Unix(0, nanos).UTC(), nil
}
