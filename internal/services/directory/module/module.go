// Package module wires the user directory using modkit
package module

import (
	"context"

	"burrito/internal/adapters/chat/slack"
	modkit "burrito/internal/modkit"
	phttp "burrito/internal/platform/net/http"

	ddom "burrito/internal/services/directory/domain"
	drepo "burrito/internal/services/directory/repo"
	dsvc "burrito/internal/services/directory/service"
)

// Module exposes the directory resolver as a port for other modules
// It mounts no routes of its own
type Module struct {
	deps modkit.Deps
	svc  *dsvc.Svc
}

// chatLookup adapts the slack client to the directory's lookup port
type chatLookup struct{ c *slack.Client }

func (a chatLookup) Lookup(ctx context.Context, externalID string) (ddom.ChatProfile, error) {
	p, err := a.c.UsersInfo(ctx, externalID)
	if err != nil {
		return ddom.ChatProfile{}, err
	}
	return ddom.ChatProfile{ExternalID: p.ExternalID, DisplayName: p.DisplayName}, nil
}

// New constructs the directory module
// The slack client is shared with other modules that need the chat edge
func New(deps modkit.Deps, chat *slack.Client) *Module {
	if chat == nil {
		panic("directory module requires a slack client")
	}
	svc := dsvc.New(deps.PG, drepo.NewPG(), chatLookup{c: chat})
	return &Module{deps: deps, svc: svc}
}

// MountRoutes is a no-op, the directory has no HTTP surface
func (m *Module) MountRoutes(r phttp.Router) {}

// Ports returns the resolver port for cross-module wiring
func (m *Module) Ports() any { return ddom.ResolverPort(m.svc) }

// Name returns the module name
func (m *Module) Name() string { return "directory" }
