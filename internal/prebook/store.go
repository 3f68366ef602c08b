// Package prebook stores short-lived booking intents registered by the
// intake collaborator before the actual booking call arrives.
package prebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidIntent is returned when the intent is missing required fields.
var ErrInvalidIntent = errors.New("prebook: name and contact number are required")

// Intent is a pending caller the booking surface should recognize.
type Intent struct {
	FullName      string    `json:"fullName"`
	ContactNumber string    `json:"contactNumber"` // last 10 digits
	Age           int       `json:"age,omitempty"`
	Gender        string    `json:"gender,omitempty"` // Male, Female or Other
	SiteID        string    `json:"siteId"`
	RegisteredAt  time.Time `json:"registeredAt"`
}

// Store keeps intents in Redis, expiring them after a TTL.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates an intent store. A non-positive ttl defaults to 24 hours.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{redis: redisClient, ttl: ttl}
}

func (s *Store) key(siteID, contactNumber string) string {
	return fmt.Sprintf("prebook:intent:%s:%s", siteID, contactNumber)
}

var nonDigitRe = regexp.MustCompile(`\D`)

func cleanPhone(raw string) string {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if len(digits) > 10 {
		return digits[len(digits)-10:]
	}
	return digits
}

// NormalizeGender maps free-text gender input onto Male, Female or Other.
func NormalizeGender(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "m", "male":
		return "Male"
	case "f", "female":
		return "Female"
	case "":
		return ""
	default:
		return "Other"
	}
}

// Register canonicalizes and saves an intent under the caller's number.
func (s *Store) Register(ctx context.Context, intent Intent) (*Intent, error) {
	intent.FullName = strings.TrimSpace(intent.FullName)
	intent.ContactNumber = cleanPhone(intent.ContactNumber)
	if intent.FullName == "" || intent.ContactNumber == "" {
		return nil, ErrInvalidIntent
	}
	intent.Gender = NormalizeGender(intent.Gender)
	if intent.RegisteredAt.IsZero() {
		intent.RegisteredAt = time.Now().UTC()
	}

	data, err := json.Marshal(&intent)
	if err != nil {
		return nil, fmt.Errorf("prebook: marshal intent: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(intent.SiteID, intent.ContactNumber), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("prebook: save intent: %w", err)
	}
	return &intent, nil
}

// Lookup returns the pending intent for a caller, or nil when none exists.
func (s *Store) Lookup(ctx context.Context, siteID, contactNumber string) (*Intent, error) {
	data, err := s.redis.Get(ctx, s.key(siteID, cleanPhone(contactNumber))).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prebook: get intent: %w", err)
	}

	var intent Intent
	if err := json.Unmarshal(data, &intent); err != nil {
		return nil, fmt.Errorf("prebook: unmarshal intent: %w", err)
	}
	return &intent, nil
}
