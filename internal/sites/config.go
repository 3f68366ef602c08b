// Package sites provides site-specific configuration and the daily slot
// window listing built from it.
package sites

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds per-site OPD configuration.
type Config struct {
	SiteID   string `json:"site_id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"` // e.g., "Asia/Kolkata"
	// OpenLabel and CloseLabel bound the bookable day, in the same clock
	// format the booking windows use.
	OpenLabel  string `json:"open_label"`  // "9:00 AM"
	CloseLabel string `json:"close_label"` // "9:00 PM"
	// WindowMinutes is the duration of each generated window.
	WindowMinutes int `json:"window_minutes"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig(siteID string) *Config {
	return &Config{
		SiteID:        siteID,
		Name:          "OPD Clinic",
		Timezone:      "Asia/Kolkata",
		OpenLabel:     "9:00 AM",
		CloseLabel:    "9:00 PM",
		WindowMinutes: 180,
	}
}

// Location resolves the site's timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Now returns the current wall-clock time in the site's timezone.
func (c *Config) Now() time.Time {
	return time.Now().In(c.Location())
}

// Store provides persistence for site configurations.
type Store struct {
	redis *redis.Client
}

// NewStore creates a new site config store.
func NewStore(redisClient *redis.Client) *Store {
	return &Store{redis: redisClient}
}

func (s *Store) key(siteID string) string {
	return fmt.Sprintf("site:config:%s", siteID)
}

// Get retrieves site config, returning default if not found.
func (s *Store) Get(ctx context.Context, siteID string) (*Config, error) {
	data, err := s.redis.Get(ctx, s.key(siteID)).Bytes()
	if err == redis.Nil {
		return DefaultConfig(siteID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("sites: get config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sites: unmarshal config: %w", err)
	}
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = 180
	}
	if strings.TrimSpace(cfg.OpenLabel) == "" {
		cfg.OpenLabel = "9:00 AM"
	}
	if strings.TrimSpace(cfg.CloseLabel) == "" {
		cfg.CloseLabel = "9:00 PM"
	}
	return &cfg, nil
}

// SiteName returns the display name for a site.
func (s *Store) SiteName(ctx context.Context, siteID string) (string, error) {
	cfg, err := s.Get(ctx, siteID)
	if err != nil {
		return "", err
	}
	return cfg.Name, nil
}

// LocalNow returns the current wall-clock time in the site's configured
// timezone. Lookup failures fall back to server time.
func (s *Store) LocalNow(ctx context.Context, siteID string) time.Time {
	cfg, err := s.Get(ctx, siteID)
	if err != nil {
		return time.Now()
	}
	return cfg.Now()
}

// Set saves site config.
func (s *Store) Set(ctx context.Context, cfg *Config) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("sites: marshal config: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(cfg.SiteID), data, 0).Err(); err != nil {
		return fmt.Errorf("sites: set config: %w", err)
	}
	return nil
}
