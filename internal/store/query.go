package store

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
)

const profileColumns = "id, user_id, address, citycode, document, created_at"

// listProfilesQuery builds the admin listing for the given placeholder
// dialect, newest first.
func listProfilesQuery(f ProfileFilter, ph sq.PlaceholderFormat) (string, []any, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := sq.Select(profileColumns).
		From("profiles").
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		PlaceholderFormat(ph)
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	if f.UserID != "" {
		q = q.Where(sq.Eq{"user_id": f.UserID})
	}
	if f.Citycode != "" {
		q = q.Where(sq.Eq{"citycode": f.Citycode})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, eris.Wrap(err, "store: build list query")
	}
	return query, args, nil
}
