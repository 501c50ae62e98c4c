// Package repo provides Postgres bindings for domain.Repo
package repo

import (
	"context"

	"burrito/internal/modkit/repokit"
	perr "burrito/internal/platform/errors"
	"burrito/internal/services/directory/domain"
)

type (
	// PG is a Postgres binder for domain.Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// Compile-time assertion: queries implements domain.Repo
var _ domain.Repo = (*queries)(nil)

// NewPG returns a Postgres binder for Repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

// UpsertProfile inserts or refreshes a profile row keyed by external_id
// Race-safe: concurrent resolvers of the same external id converge on one row
func (r *queries) UpsertProfile(ctx context.Context, externalID, displayName string) (int64, error) {
	row := r.q.QueryRow(ctx, `
		INSERT INTO user_profiles (external_id, display_name, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (external_id) DO UPDATE
		SET display_name = EXCLUDED.display_name, updated_at = now()
		RETURNING id
	`, externalID, displayName)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, perr.FromPostgresf(err, "upsert profile %s", externalID)
	}
	return id, nil
}

// DisplayNames returns display names keyed by internal id
func (r *queries) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, display_name
		FROM user_profiles
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, perr.FromPostgresf(err, "select display names")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, perr.FromPostgresf(err, "scan display name")
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPostgresf(err, "iterate display names")
	}
	return out, nil
}
