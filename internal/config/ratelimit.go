package config

import "time"

// RateLimitConfig parameterises the Redis token bucket.  Booking writes get
// their own, smaller bucket so a client hammering create/modify/cancel
// cannot starve catalog reads.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string // ip, user, ip_user or ip_user_route
	Prefix         string
	Debug          bool

	BookingCapacity int
}

// LoadRateLimitConfig reads the RATE_LIMIT_* variables and clamps them to
// usable values.
func LoadRateLimitConfig() RateLimitConfig {
	c := RateLimitConfig{
		Enabled:         envBool("RATE_LIMIT_ENABLED", true),
		Capacity:        envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:    envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval:  envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:             envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:     envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:          envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:           envBool("RATE_LIMIT_DEBUG", false),
		BookingCapacity: envInt("RATE_LIMIT_BOOKING_CAPACITY", 10),
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.BookingCapacity < 1 {
		c.BookingCapacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}

// ForBookings returns a copy of c sized for booking write endpoints.
func (c RateLimitConfig) ForBookings() RateLimitConfig {
	c.Capacity = c.BookingCapacity
	c.Prefix += ":booking"
	return c
}
