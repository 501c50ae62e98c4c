// Package domain defines the core types and ports for the grant ledger
package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DailyLimit is how many grants one author may record per calendar day
const DailyLimit = 3

// Grant is one accepted recognition record
type Grant struct {
	ID          uuid.UUID
	CreatedAt   time.Time
	AuthorID    int64
	RecipientID int64
	Message     string
}

// LeaderboardRow is one recipient's position on a leaderboard
// DisplayName falls back to the raw internal id when no profile row exists
type LeaderboardRow struct {
	RecipientID int64  `json:"recipient_id"`
	DisplayName string `json:"display_name"`
	Count       int64  `json:"count"`
}

// Label returns the display name or the raw id when the name is unknown
func (r LeaderboardRow) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	return strconv.FormatInt(r.RecipientID, 10)
}
