// Package service provides the user directory implementation
package service

import (
	"context"

	"burrito/internal/modkit/repokit"
	perr "burrito/internal/platform/errors"
	"burrito/internal/services/directory/domain"
)

// Svc implements domain.ResolverPort over a chat lookup and a profile repo
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Repo]
	chat   domain.ChatLookupPort
}

// Compile-time assertion: Svc implements domain.ResolverPort
var _ domain.ResolverPort = (*Svc)(nil)

// New constructs the directory service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], chat domain.ChatLookupPort) *Svc {
	if db == nil {
		panic("directory.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("directory.Service requires a non-nil Repo binder")
	}
	if chat == nil {
		panic("directory.Service requires a non-nil ChatLookupPort")
	}
	return &Svc{db: db, binder: binder, chat: chat}
}

// Resolve maps an external chat id to the internal directory id, creating or
// refreshing the profile row on the way. Chat lookup failures surface as
// lookup errors so callers can distinguish them from store trouble
func (s *Svc) Resolve(ctx context.Context, externalID string) (int64, error) {
	if externalID == "" {
		return 0, perr.InvalidArgf("resolve: empty external id")
	}

	prof, err := s.chat.Lookup(ctx, externalID)
	if err != nil {
		return 0, perr.Wrapf(err, perr.ErrorCodeLookupFailed, "directory resolve %s", externalID)
	}

	var id int64
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		id, err = s.binder.Bind(q).UpsertProfile(ctx, externalID, prof.DisplayName)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// DisplayNames returns display names keyed by internal id
// Unknown ids are absent from the result, labeling is the caller's problem
func (s *Svc) DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	var out map[int64]string
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).DisplayNames(ctx, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
