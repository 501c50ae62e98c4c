// Package service implements grant submission and leaderboards
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"burrito/internal/core/message"
	"burrito/internal/core/tally"
	"burrito/internal/core/window"
	"burrito/internal/modkit/repokit"
	"burrito/internal/platform/logger"
	ddom "burrito/internal/services/directory/domain"
	"burrito/internal/services/ledger/domain"
)

// Options tunes the ledger service
type Options struct {
	// Limit overrides the daily grant quota, zero means domain.DailyLimit
	Limit int64
}

// Svc implements domain.Ports
type Svc struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.Repo]
	dir    ddom.ResolverPort
	log    logger.Logger
	limit  int64
	now    func() time.Time
}

// Compile-time assertion: Svc implements domain.Ports
var _ domain.Ports = (*Svc)(nil)

// New constructs the ledger service
func New(db repokit.TxRunner, binder repokit.Binder[domain.Repo], dir ddom.ResolverPort, opts Options) *Svc {
	if db == nil {
		panic("ledger.Service requires a non-nil TxRunner")
	}
	if binder == nil {
		panic("ledger.Service requires a non-nil Repo binder")
	}
	if dir == nil {
		panic("ledger.Service requires a non-nil directory resolver")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = domain.DailyLimit
	}
	return &Svc{
		db:     db,
		binder: binder,
		dir:    dir,
		log:    *logger.Named("ledger"),
		limit:  limit,
		now:    time.Now,
	}
}

// SubmitGrant runs one inbound message through the grant rules
// Rule order is fixed: token, single mention, self grant, daily quota
// Messages without the token are ignored with no writes and no reply
func (s *Svc) SubmitGrant(ctx context.Context, in domain.SubmitInput) (domain.SubmitResult, error) {
	if !message.HasToken(in.Elements) || in.AuthorExternalID == "" {
		return domain.SubmitResult{Outcome: domain.Ignored()}, nil
	}

	mentions := message.Mentions(in.Elements)
	if len(mentions) != 1 {
		return reject(domain.ReasonNotSingleMention), nil
	}
	recipientExt := mentions[0]

	if recipientExt == in.AuthorExternalID {
		return reject(domain.ReasonSelfGrant), nil
	}

	authorID, err := s.dir.Resolve(ctx, in.AuthorExternalID)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	capturedAt := in.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}
	day := window.Day(capturedAt)

	q := s.binder.Bind(s.db)

	// Pre-check gives the user-facing rejection, the conditional insert
	// below still holds the line under races
	count, err := q.CountByAuthor(ctx, authorID, day)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if count >= s.limit {
		return reject(domain.ReasonQuotaExceeded), nil
	}

	recipientID, err := s.dir.Resolve(ctx, recipientExt)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	g := domain.Grant{
		ID:          uuid.New(),
		CreatedAt:   capturedAt,
		AuthorID:    authorID,
		RecipientID: recipientID,
		Message:     message.Annotation(in.RawText),
	}

	inserted, err := q.Insert(ctx, g, day, s.limit)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if !inserted {
		// a racing submission took the last quota slot
		return reject(domain.ReasonQuotaExceeded), nil
	}

	s.log.Info().
		Int64("author_id", authorID).
		Int64("recipient_id", recipientID).
		Str("grant_id", g.ID.String()).
		Msg("grant recorded")

	grants, err := q.ListByWindow(ctx, day)
	if err != nil {
		return domain.SubmitResult{}, err
	}
	rows, err := s.leaderboard(ctx, grants)
	if err != nil {
		return domain.SubmitResult{}, err
	}

	return domain.SubmitResult{
		Outcome: domain.Accepted(),
		Grant:   &g,
		Today:   rows,
		Reply:   renderAccepted(rows),
	}, nil
}

// Dashboard returns the all-time leaderboard
func (s *Svc) Dashboard(ctx context.Context) ([]domain.LeaderboardRow, error) {
	grants, err := s.binder.Bind(s.db).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.leaderboard(ctx, grants)
}

// leaderboard ranks the grants' recipients and attaches display names
// Recipients without a profile row keep the raw id as their label
func (s *Svc) leaderboard(ctx context.Context, grants []domain.Grant) ([]domain.LeaderboardRow, error) {
	if len(grants) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(grants))
	for i, g := range grants {
		ids[i] = g.RecipientID
	}
	ranked := tally.Rank(ids)

	uniq := make([]int64, len(ranked))
	for i, r := range ranked {
		uniq[i] = r.RecipientID
	}
	names, err := s.dir.DisplayNames(ctx, uniq)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.LeaderboardRow, len(ranked))
	for i, r := range ranked {
		rows[i] = domain.LeaderboardRow{
			RecipientID: r.RecipientID,
			DisplayName: names[r.RecipientID],
			Count:       r.Count,
		}
	}
	return rows, nil
}

func reject(r domain.RejectReason) domain.SubmitResult {
	return domain.SubmitResult{Outcome: domain.Rejected(r), Reply: r.Text()}
}

// renderAccepted builds the channel reply after an accepted grant
func renderAccepted(rows []domain.LeaderboardRow) string {
	var b strings.Builder
	b.WriteString(":burrito: 부리또를 성공적으로 주셨습니다.:burrito:\n\n*오늘의 부리또*\n\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s: `%d`\n", r.Label(), r.Count)
	}
	return b.String()
}
