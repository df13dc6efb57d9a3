package config

import "time"

// LimitRule is a fixed-window quota: at most Max attempts per Window.
type LimitRule struct {
	Max    int
	Window time.Duration
}

// RateLimitConfig groups the limiter rules used by the API.  Backend selects
// where counters live: "memory" keeps them in the process (lost on restart,
// not shared between instances) and "redis" uses the shared Redis store.
type RateLimitConfig struct {
	Backend    string
	Prefix     string
	AdminLogin LimitRule // per client IP on /api/admin/auth/login
	UserLogin  LimitRule // per client IP on /api/auth/login
	API        LimitRule // optional global throttle
	APIEnabled bool
	Debug      bool
}

func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Backend: envStr("RATE_LIMIT_BACKEND", "memory"),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
		AdminLogin: LimitRule{
			Max:    envInt("ADMIN_LOGIN_MAX_ATTEMPTS", 5),
			Window: envDur("ADMIN_LOGIN_WINDOW", 15*time.Minute),
		},
		UserLogin: LimitRule{
			Max:    envInt("USER_LOGIN_MAX_ATTEMPTS", 10),
			Window: envDur("USER_LOGIN_WINDOW", 15*time.Minute),
		},
		API: LimitRule{
			Max:    envInt("RATE_LIMIT_CAPACITY", 120),
			Window: envDur("RATE_LIMIT_WINDOW", time.Minute),
		},
		APIEnabled: envBool("RATE_LIMIT_ENABLED", false),
		Debug:      envBool("RATE_LIMIT_DEBUG", false),
	}
	for _, r := range []*LimitRule{&cfg.AdminLogin, &cfg.UserLogin, &cfg.API} {
		if r.Max < 1 {
			r.Max = 1
		}
		if r.Window <= 0 {
			r.Window = time.Minute
		}
	}
	return cfg
}
