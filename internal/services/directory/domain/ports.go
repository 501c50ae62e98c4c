// Package domain defines the core types and ports for the user directory
package domain

import "context"

// ChatProfile is the chat platform's view of a user
type ChatProfile struct {
	ExternalID  string
	DisplayName string
}

// ChatLookupPort fetches a profile from the chat platform
type ChatLookupPort interface {
	Lookup(ctx context.Context, externalID string) (ChatProfile, error)
}

// ResolverPort resolves external chat ids to internal directory ids
// Resolve is idempotent, resolving the same external id twice yields the
// same internal id
type ResolverPort interface {
	Resolve(ctx context.Context, externalID string) (int64, error)
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// Repo is the persistence surface for user profiles
type Repo interface {
	// UpsertProfile inserts or refreshes the profile row for externalID and
	// returns its store assigned id
	UpsertProfile(ctx context.Context, externalID, displayName string) (int64, error)

	// DisplayNames returns display names keyed by internal id
	// Ids without a profile row are simply absent from the map
	DisplayNames(ctx context.Context, ids []int64) (map[int64]string, error)
}
