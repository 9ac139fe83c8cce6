package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "xrp_wallet:rl:"

// KeyFunc picks the identity a rate limit applies to.
type KeyFunc func(c *fiber.Ctx) string

// RateLimit allows at most maxPerMin requests per key and minute for the
// given scope, counting in Redis. Without Redis, or when Redis fails, it
// lets requests through. An empty key falls back to the client IP.
func RateLimit(cache *redis.Client, scope string, maxPerMin int, key KeyFunc) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		id := ""
		if key != nil {
			id = key(c)
		}
		if id == "" {
			id = c.IP()
		}

		counter := rateLimitPrefix + scope + ":" + id
		cnt, err := cache.Incr(c.UserContext(), counter).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), counter, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many "+scope+" requests, try again later")
		}
		return c.Next()
	}
}
