package remote

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
)

// ResolverConfig lists the candidate service addresses.
type ResolverConfig struct {
	// ExplicitURL wins over everything else when set.
	ExplicitURL   string
	LocalURL      string
	ProductionURL string
	// HealthPath is appended to LocalURL for the availability probe.
	HealthPath   string
	ProbeTimeout time.Duration
	// ProbeCacheTTL is how long a probe answer is reused.
	ProbeCacheTTL time.Duration
}

// Resolver picks the service address and tells subscribers when it changes.
type Resolver struct {
	cfg    ResolverConfig
	http   *resty.Client
	probes *cache.Cache
	logger *log.Logger

	mu        sync.Mutex
	current   string
	listeners []func(string)
}

// NewResolver creates a resolver. A nil logger falls back to log.Default().
func NewResolver(cfg ResolverConfig, logger *log.Logger) *Resolver {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.ProbeCacheTTL <= 0 {
		cfg.ProbeCacheTTL = 30 * time.Second
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = DefaultPathPrefix + "/health"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{
		cfg:    cfg,
		http:   resty.New().SetTimeout(cfg.ProbeTimeout),
		probes: cache.New(cfg.ProbeCacheTTL, 2*cfg.ProbeCacheTTL),
		logger: logger,
	}
}

// OnBaseAddressChanged registers fn to run whenever Resolve picks a new address.
func (r *Resolver) OnBaseAddressChanged(fn func(url string)) {
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

// BaseAddress returns the last resolved address, or "" before the first Resolve.
func (r *Resolver) BaseAddress() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Resolve chooses the address: explicit URL, then the local service if it
// answers its health probe, then production.
func (r *Resolver) Resolve(ctx context.Context) (url string, local bool) {
	switch {
	case r.cfg.ExplicitURL != "":
		url = r.cfg.ExplicitURL
		local = url == r.cfg.LocalURL
	case r.cfg.LocalURL != "" && r.available(ctx, r.cfg.LocalURL):
		url, local = r.cfg.LocalURL, true
	case r.cfg.ProductionURL != "":
		url = r.cfg.ProductionURL
	default:
		url, local = r.cfg.LocalURL, true
	}
	url = normalizeBase(url)

	r.mu.Lock()
	changed := url != r.current
	r.current = url
	listeners := append([]func(string){}, r.listeners...)
	r.mu.Unlock()

	if changed {
		r.logger.Printf("queue service address set to %s (local=%t)", url, local)
		for _, fn := range listeners {
			fn(url)
		}
	}
	return url, local
}

func (r *Resolver) available(ctx context.Context, base string) bool {
	key := normalizeBase(base)
	if v, found := r.probes.Get(key); found {
		return v.(bool)
	}

	ok := false
	resp, err := r.http.R().SetContext(ctx).Get(key + r.cfg.HealthPath)
	if err != nil {
		r.logger.Printf("local queue service probe failed: %v", err)
	} else {
		ok = resp.StatusCode() >= 200 && resp.StatusCode() < 300
		if !ok {
			r.logger.Printf("local queue service probe returned %d", resp.StatusCode())
		}
	}
	if resp == nil || resp.StatusCode() != http.StatusTooManyRequests {
		r.probes.Set(key, ok, cache.DefaultExpiration)
	}
	return ok
}
