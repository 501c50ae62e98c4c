// Package repo provides Postgres bindings for domain.Repo
package repo

import (
	"context"

	"burrito/internal/core/window"
	"burrito/internal/modkit/repokit"
	perr "burrito/internal/platform/errors"
	"burrito/internal/platform/store"
	"burrito/internal/services/ledger/domain"
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

// Insert records g only while the author's same-window count stays below
// limit. The guard and the write run in one statement so two racing
// submissions cannot both slip under the quota
func (r *queries) Insert(ctx context.Context, g domain.Grant, w window.Window, limit int64) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO grants (id, created_at, author_id, recipient_id, message)
		SELECT $1, $2, $3, $4, $5
		WHERE (
			SELECT count(*) FROM grants
			WHERE author_id = $3 AND created_at >= $6 AND created_at < $7
		) < $8
	`, g.ID, g.CreatedAt, g.AuthorID, g.RecipientID, g.Message, w.Start, w.End, limit)
	if err != nil {
		return false, perr.FromPostgresf(err, "insert grant by author %d", g.AuthorID)
	}
	return tag.RowsAffected() == 1, nil
}

// CountByAuthor returns the author's grant count inside w
func (r *queries) CountByAuthor(ctx context.Context, authorID int64, w window.Window) (int64, error) {
	n, err := store.Scalar[int64](ctx, r.q, `
		SELECT count(*) FROM grants
		WHERE author_id = $1 AND created_at >= $2 AND created_at < $3
	`, authorID, w.Start, w.End)
	if err != nil {
		return 0, perr.FromPostgresf(err, "count grants by author %d", authorID)
	}
	return n, nil
}

// ListByWindow returns the grants recorded inside w in creation order
func (r *queries) ListByWindow(ctx context.Context, w window.Window) ([]domain.Grant, error) {
	out, err := store.Many(ctx, r.q, scanGrant, `
		SELECT id, created_at, author_id, recipient_id, message
		FROM grants
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at, id
	`, w.Start, w.End)
	if err != nil {
		return nil, perr.FromPostgresf(err, "list grants by window")
	}
	return out, nil
}

// ListAll returns every grant in creation order
func (r *queries) ListAll(ctx context.Context) ([]domain.Grant, error) {
	out, err := store.Many(ctx, r.q, scanGrant, `
		SELECT id, created_at, author_id, recipient_id, message
		FROM grants
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, perr.FromPostgresf(err, "list all grants")
	}
	return out, nil
}

func scanGrant(row store.Row) (domain.Grant, error) {
	var g domain.Grant
	if err := row.Scan(&g.ID, &g.CreatedAt, &g.AuthorID, &g.RecipientID, &g.Message); err != nil {
		return domain.Grant{}, err
	}
	return g, nil
}
