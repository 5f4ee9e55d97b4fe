// Package store persists generated profiles and the credit ledger.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/model"
)

var (
	// ErrNotFound is returned when a profile id is unknown.
	ErrNotFound = eris.New("store: not found")
	// ErrInsufficientCredits is returned when an unlock finds no credit left.
	ErrInsufficientCredits = eris.New("store: insufficient credits")
)

// ProfileFilter specifies criteria for listing stored profiles.
type ProfileFilter struct {
	UserID   string `json:"user_id,omitempty"`
	Citycode string `json:"citycode,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// DefaultListLimit applies when a filter sets no limit.
const DefaultListLimit = 50

// Store defines the persistence interface for profiles and credits.
type Store interface {
	// Profiles. SaveProfile assigns ID and CreatedAt when unset.
	SaveProfile(ctx context.Context, sp *model.StoredProfile) error
	GetProfile(ctx context.Context, id string) (*model.StoredProfile, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]model.StoredProfile, error)

	// Credits. GrantCredits reports false when the payment reference was
	// already applied. ConsumeCredit charges one credit the first time a
	// user unlocks key and reports whether it charged.
	GrantCredits(ctx context.Context, grant model.CreditGrant) (applied bool, err error)
	ConsumeCredit(ctx context.Context, userID, key string) (charged bool, err error)
	Balance(ctx context.Context, userID string) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
