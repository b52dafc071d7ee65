// Package geoip enriches subscriber registrations with a best-effort
// city/country lookup. Failures are tolerated; registration never
// depends on it.
package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
)

type Location struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type Resolver struct {
	http    *http.Client
	cache   *cache.Cache
	baseURL string
}

func NewResolver(baseURL string, timeout, cacheTTL time.Duration) *Resolver {
	return &Resolver{
		http:    &http.Client{Timeout: timeout},
		cache:   cache.New(cacheTTL, 2*cacheTTL),
		baseURL: baseURL,
	}
}

// Lookup resolves an IP to a location. Lookups are cached per IP;
// failed lookups return an empty location and are not cached, so the
// next registration retries.
func (r *Resolver) Lookup(ctx context.Context, ip string) Location {
	if ip == "" {
		return Location{}
	}
	if cached, ok := r.cache.Get(ip); ok {
		return cached.(Location)
	}

	loc, err := r.fetch(ctx, ip)
	if err != nil {
		log.Debug().Err(err).Str("ip", ip).Msg("geoip lookup failed")
		return Location{}
	}

	r.cache.Set(ip, loc, cache.DefaultExpiration)
	return loc
}

func (r *Resolver) fetch(ctx context.Context, ip string) (Location, error) {
	url := fmt.Sprintf("%s/%s?fields=status,country,city,query", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Status  string `json:"status"`
		Country string `json:"country"`
		City    string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, err
	}
	if body.Status != "success" {
		return Location{}, fmt.Errorf("lookup returned status %q", body.Status)
	}
	return Location{City: body.City, Country: body.Country}, nil
}
