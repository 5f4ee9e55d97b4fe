package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/house-report/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_profile": `INSERT INTO profiles (` + profileColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_profile":    `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`,
	"get_balance":    `SELECT credits FROM credit_balances WHERE user_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close, now: time.Now}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS profiles (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	address    TEXT NOT NULL,
	citycode   TEXT NOT NULL DEFAULT '',
	document   JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS credit_balances (
	user_id TEXT PRIMARY KEY,
	credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0)
);

CREATE TABLE IF NOT EXISTS credit_grants (
	payment_ref TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	credits     INTEGER NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS unlocks (
	user_id    TEXT NOT NULL,
	unlock_key TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, unlock_key)
);

CREATE INDEX IF NOT EXISTS idx_profiles_user_id ON profiles(user_id);
CREATE INDEX IF NOT EXISTS idx_profiles_citycode ON profiles(citycode);
CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *PostgresStore) SaveProfile(ctx context.Context, sp *model.StoredProfile) error {
	doc, err := prepareProfile(sp, s.clock)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, preparedStatements["insert_profile"],
		sp.ID, sp.UserID, sp.Address, sp.Citycode, doc, sp.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert profile")
}

func (s *PostgresStore) GetProfile(ctx context.Context, id string) (*model.StoredProfile, error) {
	sp, err := scanProfile(s.pool.QueryRow(ctx, preparedStatements["get_profile"], id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", id)
	}
	return sp, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]model.StoredProfile, error) {
	query, args, err := listProfilesQuery(filter, sq.Dollar)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []model.StoredProfile
	for rows.Next() {
		sp, err := scanProfile(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan profile")
		}
		out = append(out, *sp)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list profiles")
}

func (s *PostgresStore) GrantCredits(ctx context.Context, g model.CreditGrant) (bool, error) {
	if err := validateGrant(g); err != nil {
		return false, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin grant")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO credit_grants (payment_ref, user_id, credits, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (payment_ref) DO NOTHING`,
		g.PaymentRef, g.UserID, g.Credits, s.clock().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert grant")
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, addCreditsSQL("$1", "$2"), g.UserID, g.Credits); err != nil {
		return false, eris.Wrap(err, "postgres: add credits")
	}
	return true, eris.Wrap(tx.Commit(ctx), "postgres: commit grant")
}

func (s *PostgresStore) ConsumeCredit(ctx context.Context, userID, key string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin consume")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`INSERT INTO unlocks (user_id, unlock_key, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, unlock_key) DO NOTHING`,
		userID, key, s.clock().UTC(),
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert unlock")
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `UPDATE credit_balances SET credits = credits - 1 WHERE user_id = $1 AND credits > 0`, userID)
	if err != nil {
		return false, eris.Wrap(err, "postgres: debit credit")
	}
	if tag.RowsAffected() == 0 {
		return false, ErrInsufficientCredits
	}
	return true, eris.Wrap(tx.Commit(ctx), "postgres: commit consume")
}

func (s *PostgresStore) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := s.pool.QueryRow(ctx, preparedStatements["get_balance"], userID).Scan(&credits)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return credits, eris.Wrap(err, "postgres: balance")
}
