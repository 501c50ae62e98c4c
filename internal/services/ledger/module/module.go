// Package module wires the grant ledger using modkit
package module

import (
	"burrito/internal/adapters/chat/slack"
	modkit "burrito/internal/modkit"
	phttp "burrito/internal/platform/net/http"

	ddom "burrito/internal/services/directory/domain"
	ldom "burrito/internal/services/ledger/domain"
	lhttp "burrito/internal/services/ledger/http"
	lrepo "burrito/internal/services/ledger/repo"
	lsvc "burrito/internal/services/ledger/service"
)

// Module implements the ledger module, the chat intake and dashboard surface
type Module struct {
	deps modkit.Deps
	svc  *lsvc.Svc
	chat *slack.Client
}

// New constructs the ledger module
// The directory resolver comes from the directory module's ports
func New(deps modkit.Deps, dir ddom.ResolverPort, chat *slack.Client, opts Options) *Module {
	if dir == nil {
		panic("ledger module requires a directory resolver port")
	}
	if chat == nil {
		panic("ledger module requires a slack client")
	}
	svc := lsvc.New(deps.PG, lrepo.NewPG(), dir, lsvc.Options{Limit: opts.Limit})
	return &Module{deps: deps, svc: svc, chat: chat}
}

// MountRoutes mounts the intake webhook and the dashboard endpoint
func (m *Module) MountRoutes(r phttp.Router) {
	lhttp.Register(r, m.svc, m.chat)
}

// Ports returns the ledger ports for cross-module wiring
func (m *Module) Ports() any { return ldom.Ports(m.svc) }

// Name returns the module name
func (m *Module) Name() string { return "ledger" }
