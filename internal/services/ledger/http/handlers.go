// Package http provides http transport for the grant ledger
package http

import (
	"context"
	"encoding/json"
	"fmt"
	stdhttp "net/http"

	"burrito/internal/adapters/chat/slack"
	"burrito/internal/modkit/httpkit"
	"burrito/internal/platform/logger"
	phttp "burrito/internal/platform/net/http"
	"burrito/internal/platform/net/http/bind"
	"burrito/internal/services/ledger/domain"
)

// Chat is the outbound chat surface the intake relays replies through
type Chat interface {
	PostMessage(ctx context.Context, channel, text string) error
	PublishHomeView(ctx context.Context, externalID string, view json.RawMessage) error
}

// Register mounts the router
func Register(r httpkit.Router, s domain.Ports, chat Chat) {
	h := &handlers{svc: s, chat: chat, log: *logger.Named("ledger.http")}
	r.Post("/slack/events", h.events)
	r.Get("/dashboard", httpkit.NoBody(h.dashboard))
}

type handlers struct {
	svc  domain.Ports
	chat Chat
	log  logger.Logger
}

// events is the chat platform webhook. The platform retries non-2xx
// deliveries, so processing errors are logged and acked rather than
// surfaced, only malformed payloads get an error status
func (h *handlers) events(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	env, err := bind.ParseJSON[slack.Envelope](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}

	switch env.Type {
	case slack.TypeURLVerification:
		// the platform expects the raw challenge back, not our envelope
		phttp.JSON(w, stdhttp.StatusOK, map[string]string{"challenge": env.Challenge})
		return
	case slack.TypeEventCallback:
		h.handleEvent(r.Context(), env.Event)
	}

	phttp.RespondOK(w, r, nil)
}

func (h *handlers) handleEvent(ctx context.Context, ev *slack.Event) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case slack.EventMessage:
		h.handleMessage(ctx, ev)
	case slack.EventAppHomeOpened:
		h.publishHome(ctx, ev.User)
	}
}

func (h *handlers) handleMessage(ctx context.Context, ev *slack.Event) {
	if ev.FromBot() {
		return
	}

	capturedAt, _ := ev.Time()
	res, err := h.svc.SubmitGrant(ctx, domain.SubmitInput{
		AuthorExternalID: ev.User,
		Channel:          ev.Channel,
		RawText:          ev.Text,
		Elements:         ev.Elements(),
		CapturedAt:       capturedAt,
	})
	if err != nil {
		h.log.Error().Err(err).Str("author", ev.User).Msg("submit grant failed")
		return
	}

	if res.Reply != "" && ev.Channel != "" {
		if err := h.chat.PostMessage(ctx, ev.Channel, res.Reply); err != nil {
			h.log.Error().Err(err).Str("channel", ev.Channel).Msg("post reply failed")
		}
	}
}

func (h *handlers) publishHome(ctx context.Context, externalID string) {
	if externalID == "" {
		return
	}
	rows, err := h.svc.Dashboard(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("dashboard query failed")
		return
	}
	view, err := homeView(rows)
	if err != nil {
		h.log.Error().Err(err).Msg("home view encode failed")
		return
	}
	if err := h.chat.PublishHomeView(ctx, externalID, view); err != nil {
		h.log.Error().Err(err).Str("user", externalID).Msg("publish home view failed")
	}
}

func (h *handlers) dashboard(r *stdhttp.Request) (any, error) {
	return h.svc.Dashboard(r.Context())
}

// homeView renders the all-time leaderboard as a home tab view
func homeView(rows []domain.LeaderboardRow) (json.RawMessage, error) {
	section := func(text string) map[string]any {
		return map[string]any{
			"type": "section",
			"text": map[string]any{"type": "mrkdwn", "text": text},
		}
	}

	blocks := []any{
		section("*Burrito Dashboard* :tada:"),
		map[string]any{"type": "divider"},
	}
	for _, row := range rows {
		blocks = append(blocks, section(fmt.Sprintf("%s: `%d`", row.Label(), row.Count)))
	}

	return json.Marshal(map[string]any{
		"type":        "home",
		"callback_id": "home_view",
		"blocks":      blocks,
	})
}
