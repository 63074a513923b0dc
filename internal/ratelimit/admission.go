package ratelimit

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"
)

// Identity is who a request is admitted as
type Identity struct {
	UserID        string
	Role          string
	IP            string
	Authenticated bool
	Superadmin    bool
}

// Key returns the per-principal counter key: user id when authenticated, otherwise IP
func (id Identity) Key() string {
	if id.Authenticated && id.UserID != "" {
		return "user:" + id.UserID
	}
	return "ip:" + id.IP
}

// Tier is one rate-limit window applied to matching requests
type Tier struct {
	Name      string
	Window    time.Duration
	Limit     int64 // ceiling for anonymous callers
	AuthLimit int64 // ceiling for authenticated callers; zero means Limit
	KeyFunc   func(Identity) string
	Applies   func(Identity) bool
}

func (t Tier) limitFor(id Identity) int64 {
	if id.Authenticated && t.AuthLimit > 0 {
		return t.AuthLimit
	}
	return t.Limit
}

func (t Tier) keyFor(id Identity) string {
	if t.KeyFunc != nil {
		return t.Name + ":" + t.KeyFunc(id)
	}
	return t.Name + ":" + id.Key()
}

// Decision is the outcome of one admission check
type Decision struct {
	Allowed    bool
	Tier       string
	Limit      int64
	Remaining  int64
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds the retry hint up to whole seconds, minimum one
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// LimitExceededError reports which tier rejected a request and when to retry
type LimitExceededError struct {
	Decision Decision
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s tier, retry after %ds", e.Decision.Tier, e.Decision.RetryAfterSeconds())
}

// Admitter evaluates tiers in order against a shared counter
type Admitter struct {
	counter Counter
	tiers   []Tier
}

// NewAdmitter creates an admitter over the given tiers
func NewAdmitter(counter Counter, tiers ...Tier) *Admitter {
	return &Admitter{counter: counter, tiers: tiers}
}

// Tiers returns the configured tiers
func (a *Admitter) Tiers() []Tier {
	return a.tiers
}

func rejection(tier Tier, limit int64, res Result) (Decision, error) {
	d := Decision{
		Allowed:    false,
		Tier:       tier.Name,
		Limit:      limit,
		Remaining:  0,
		RetryAfter: res.ResetIn,
	}
	return d, &LimitExceededError{Decision: d}
}

// Admit checks every applicable tier before counting the request against any
// of them, so a rejected request leaves all windows untouched. The first
// exceeded tier rejects. Counter failures admit the request.
func (a *Admitter) Admit(ctx context.Context, id Identity) (Decision, error) {
	var applicable []Tier
	for _, tier := range a.tiers {
		if tier.Applies == nil || tier.Applies(id) {
			applicable = append(applicable, tier)
		}
	}

	for _, tier := range applicable {
		limit := tier.limitFor(id)
		res, err := a.counter.Peek(ctx, tier.keyFor(id), tier.Window)
		if err != nil {
			log.Printf("⚠️  [RATE-LIMIT] Counter unavailable for %s tier, allowing request: %v", tier.Name, err)
			continue
		}
		if res.Count >= limit {
			return rejection(tier, limit, res)
		}
	}

	allowed := Decision{Allowed: true, Remaining: -1}
	for _, tier := range applicable {
		limit := tier.limitFor(id)
		res, err := a.counter.Hit(ctx, tier.keyFor(id), tier.Window)
		if err != nil {
			log.Printf("⚠️  [RATE-LIMIT] Counter unavailable for %s tier, allowing request: %v", tier.Name, err)
			continue
		}

		// a concurrent request can fill the window between Peek and Hit
		if res.Count > limit {
			return rejection(tier, limit, res)
		}

		remaining := limit - res.Count
		if allowed.Remaining < 0 || remaining < allowed.Remaining {
			allowed.Tier = tier.Name
			allowed.Limit = limit
			allowed.Remaining = remaining
			allowed.RetryAfter = res.ResetIn
		}
	}

	return allowed, nil
}

// Tier names
const (
	TierStandard  = "standard"
	TierAnonymous = "anonymous"
	TierDaily     = "daily"
)

// TierConfig holds the tunable ceilings for the default tiers
type TierConfig struct {
	StandardWindow    time.Duration
	StandardAnonLimit int64
	StandardAuthLimit int64
	AnonymousWindow   time.Duration
	AnonymousLimit    int64
	DailyWindow       time.Duration
	DailyLimit        int64
}

// DefaultTierConfig returns the production ceilings
func DefaultTierConfig() TierConfig {
	return TierConfig{
		StandardWindow:    time.Minute,
		StandardAnonLimit: 20,
		StandardAuthLimit: 60,
		AnonymousWindow:   time.Minute,
		AnonymousLimit:    10,
		DailyWindow:       24 * time.Hour,
		DailyLimit:        500,
	}
}

func notSuperadmin(id Identity) bool {
	return !id.Superadmin
}

// DefaultTiers builds the standard, anonymous and daily tiers. Superadmins skip
// only the standard tier; the daily ceiling applies to everyone.
func DefaultTiers(cfg TierConfig) []Tier {
	return []Tier{
		{
			Name:      TierStandard,
			Window:    cfg.StandardWindow,
			Limit:     cfg.StandardAnonLimit,
			AuthLimit: cfg.StandardAuthLimit,
			Applies:   notSuperadmin,
		},
		{
			Name:    TierAnonymous,
			Window:  cfg.AnonymousWindow,
			Limit:   cfg.AnonymousLimit,
			KeyFunc: func(id Identity) string { return "anon:" + id.IP },
			Applies: func(id Identity) bool { return !id.Authenticated },
		},
		{
			Name:   TierDaily,
			Window: cfg.DailyWindow,
			Limit:  cfg.DailyLimit,
		},
	}
}
