package domain

import (
	"context"
	"time"

	"burrito/internal/core/message"
	"burrito/internal/core/window"
)

// SubmitInput is one inbound message as seen by the ledger
// CapturedAt is sampled once at the intake edge so every rule in the
// submission reasons about the same instant
type SubmitInput struct {
	AuthorExternalID string
	Channel          string
	RawText          string
	Elements         []message.Element
	CapturedAt       time.Time
}

// SubmitResult is what the ledger decided and what to say about it
type SubmitResult struct {
	Outcome Outcome

	// Grant is set only when the outcome is accepted
	Grant *Grant

	// Today holds the same-day leaderboard after an accepted grant
	Today []LeaderboardRow

	// Reply is the channel text to post, empty when ignored
	Reply string
}

// SubmitterPort records grant attempts
type SubmitterPort interface {
	SubmitGrant(ctx context.Context, in SubmitInput) (SubmitResult, error)
}

// ReaderPort serves leaderboards
type ReaderPort interface {
	// Dashboard returns the all-time leaderboard
	Dashboard(ctx context.Context) ([]LeaderboardRow, error)
}

// Ports is the full ledger surface other modules may depend on
type Ports interface {
	SubmitterPort
	ReaderPort
}

// Repo is the persistence surface for grants
type Repo interface {
	// Insert records g only while the author's count inside w stays below
	// limit. Returns false when the quota blocked the write
	Insert(ctx context.Context, g Grant, w window.Window, limit int64) (bool, error)

	// CountByAuthor returns how many grants the author recorded inside w
	CountByAuthor(ctx context.Context, authorID int64, w window.Window) (int64, error)

	// ListByWindow returns the grants recorded inside w in creation order
	ListByWindow(ctx context.Context, w window.Window) ([]Grant, error)

	// ListAll returns every grant in creation order
	ListAll(ctx context.Context) ([]Grant, error)
}
