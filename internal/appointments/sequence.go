package appointments

import (
	"context"
	"fmt"
)

// SequenceIssuer hands out strictly increasing token numbers from a named
// persisted counter. One global counter serves every site; the increment is
// a single atomic upsert, independent of the per-queue locks.
type SequenceIssuer struct {
	db   DB
	name string
}

// NewSequenceIssuer creates an issuer for the named counter.
func NewSequenceIssuer(db DB, name string) *SequenceIssuer {
	if name == "" {
		name = "appointment_number"
	}
	return &SequenceIssuer{db: db, name: name}
}

// Next increments the counter and returns the new value.
func (s *SequenceIssuer) Next(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO counters (name, seq)
		VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		RETURNING seq
	`, s.name).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("appointments: counter increment failed: %w", err)
	}
	return seq, nil
}
