package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/house-report/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	address    TEXT NOT NULL,
	citycode   TEXT NOT NULL DEFAULT '',
	document   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS credit_balances (
	user_id TEXT PRIMARY KEY,
	credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0)
);

CREATE TABLE IF NOT EXISTS credit_grants (
	payment_ref TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	credits     INTEGER NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS unlocks (
	user_id    TEXT NOT NULL,
	unlock_key TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (user_id, unlock_key)
);

CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id);
CREATE INDEX IF NOT EXISTS idx_profiles_citycode ON profiles(citycode);
CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, sp *model.StoredProfile) error {
	doc, err := prepareProfile(sp, s.now)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.UserID, sp.Address, sp.Citycode, string(doc), sp.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert profile")
}

func (s *SQLiteStore) GetProfile(ctx context.Context, id string) (*model.StoredProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	sp, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get profile")
	}
	return sp, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]model.StoredProfile, error) {
	query, args, err := listProfilesQuery(filter, sq.Question)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.StoredProfile
	for rows.Next() {
		sp, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list profiles")
		}
		out = append(out, *sp)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list profiles")
}

func (s *SQLiteStore) GrantCredits(ctx context.Context, g model.CreditGrant) (bool, error) {
	if err := validateGrant(g); err != nil {
		return false, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin grant")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`INSERT INTO credit_grants (payment_ref, user_id, credits, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (payment_ref) DO NOTHING`,
		g.PaymentRef, g.UserID, g.Credits, s.now().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert grant")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, addCreditsSQL("?", "?"), g.UserID, g.Credits); err != nil {
		return false, eris.Wrap(err, "sqlite: add credits")
	}
	return true, eris.Wrap(tx.Commit(), "sqlite: commit grant")
}

func (s *SQLiteStore) ConsumeCredit(ctx context.Context, userID, key string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin consume")
	}
	defer tx.Rollback() //nolint:errcheck

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM unlocks WHERE user_id = ? AND unlock_key = ?`, userID, key).Scan(&one)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, eris.Wrap(err, "sqlite: check unlock")
	}

	res, err := tx.ExecContext(ctx, `UPDATE credit_balances SET credits = credits - 1 WHERE user_id = ? AND credits > 0`, userID)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: debit credit")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrInsufficientCredits
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO unlocks (user_id, unlock_key, created_at) VALUES (?, ?, ?)`,
		userID, key, s.now().UTC(),
	); err != nil {
		return false, eris.Wrap(err, "sqlite: insert unlock")
	}
	return true, eris.Wrap(tx.Commit(), "sqlite: commit consume")
}

func (s *SQLiteStore) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := s.db.QueryRowContext(ctx, `SELECT credits FROM credit_balances WHERE user_id = ?`, userID).Scan(&credits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return credits, eris.Wrap(err, "sqlite: balance")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable) (*model.StoredProfile, error) {
	var sp model.StoredProfile
	var doc []byte
	if err := row.Scan(&sp.ID, &sp.UserID, &sp.Address, &sp.Citycode, &doc, &sp.CreatedAt); err != nil {
		return nil, err
	}
	sp.Profile = &model.HouseProfile{}
	if err := json.Unmarshal(doc, sp.Profile); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal profile")
	}
	return &sp, nil
}

// prepareProfile fills the generated fields of sp and returns its document.
func prepareProfile(sp *model.StoredProfile, now func() time.Time) ([]byte, error) {
	if sp == nil || sp.Profile == nil {
		return nil, eris.New("store: profile is required")
	}
	if sp.UserID == "" {
		return nil, eris.New("store: user id is required")
	}
	if sp.ID == "" {
		sp.ID = uuid.New().String()
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now().UTC()
	}
	if sp.Address == "" {
		sp.Address = sp.Profile.Query.Address
	}
	if sp.Citycode == "" {
		sp.Citycode = sp.Profile.Location.Admin.Citycode
	}
	// The profile may be shared with the cache; stamp the id on a copy.
	profile := *sp.Profile
	profile.ID = sp.ID
	sp.Profile = &profile
	doc, err := json.Marshal(sp.Profile)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal profile")
	}
	return doc, nil
}

func validateGrant(g model.CreditGrant) error {
	switch {
	case g.UserID == "":
		return eris.New("store: grant user id is required")
	case g.PaymentRef == "":
		return eris.New("store: grant payment ref is required")
	case g.Credits <= 0:
		return eris.Errorf("store: grant credits must be > 0, got %d", g.Credits)
	}
	return nil
}

// addCreditsSQL upserts a balance increment with the given placeholders.
func addCreditsSQL(userPH, creditsPH string) string {
	return `INSERT INTO credit_balances (user_id, credits) VALUES (` + userPH + `, ` + creditsPH + `)
		ON CONFLICT (user_id) DO UPDATE SET credits = credit_balances.credits + excluded.credits`
}
