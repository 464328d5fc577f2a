/**
 * @description
 * Redis-backed throttle for the payment-confirmation webhook. Providers
 * replay deliveries aggressively on slow responses; the throttle counts
 * deliveries per offer inside a rolling window so a replay storm is answered
 * with 429 + Retry-After instead of hammering the installment ledger.
 *
 * Key features:
 * - Single round trip: an atomic Lua INCR + PEXPIRE keeps the count and the
 *   window TTL consistent across service replicas.
 * - Fail-open: a nil client disables throttling, and callers treat throttle
 *   errors as advisory so Redis downtime never blocks settlement.
 */
package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var webhookDeliveryCountScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// WebhookThrottle counts payment-webhook deliveries per offer in Redis.
type WebhookThrottle struct {
	client redis.UniversalClient
	prefix string
}

func NewWebhookThrottle(client redis.UniversalClient, prefix string) *WebhookThrottle {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "coachingmatch:webhook_throttle"
	}
	prefix = strings.TrimSuffix(prefix, ":")

	return &WebhookThrottle{
		client: client,
		prefix: prefix,
	}
}

// CountDelivery records one webhook delivery for the offer and returns the
// number seen inside the current window plus a Retry-After hint in seconds.
// A disabled throttle (nil receiver or client, non-positive limit or window)
// reports zero deliveries so callers always admit the request.
func (t *WebhookThrottle) CountDelivery(
	ctx context.Context,
	offerID uuid.UUID,
	limit int,
	window time.Duration,
) (count int, retryAfterSeconds int, err error) {
	if t == nil || t.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s", t.prefix, offerID)
	raw, err := webhookDeliveryCountScript.Run(ctx, t.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	current, ttlMs, err := parseDeliveryCountReply(raw)
	if err != nil {
		return current, 0, err
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return current, retryAfter, nil
}

func parseDeliveryCountReply(raw interface{}) (count int, ttlMs int64, err error) {
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected webhook throttle reply shape: %T", raw)
	}
	current, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected webhook throttle count type: %T", values[0])
	}
	ttlMs, ok = values[1].(int64)
	if !ok {
		return int(current), 0, fmt.Errorf("unexpected webhook throttle ttl type: %T", values[1])
	}
	return int(current), ttlMs, nil
}
