package slack

import (
	"strconv"
	"strings"
	"time"

	"burrito/internal/core/message"
)

// Envelope is the outer event callback payload delivered to the intake
// endpoint. url_verification carries Challenge, event_callback carries Event
type Envelope struct {
	Type      string `json:"type" validate:"required"`
	Challenge string `json:"challenge,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Event     *Event `json:"event,omitempty"`
}

// Envelope types
const (
	TypeURLVerification = "url_verification"
	TypeEventCallback   = "event_callback"
)

// Event is one inner event. Only message and app_home_opened are acted on
type Event struct {
	Type    string  `json:"type"`
	Subtype string  `json:"subtype,omitempty"`
	User    string  `json:"user,omitempty"`
	BotID   string  `json:"bot_id,omitempty"`
	Channel string  `json:"channel,omitempty"`
	Text    string  `json:"text,omitempty"`
	TS      string  `json:"ts,omitempty"`
	Blocks  []Block `json:"blocks,omitempty"`
}

// Event types
const (
	EventMessage       = "message"
	EventAppHomeOpened = "app_home_opened"
)

// Block is one block kit block. Rich text blocks nest sections which nest
// the leaf elements we care about
type Block struct {
	Type     string    `json:"type"`
	Elements []Section `json:"elements,omitempty"`
}

// Section is one rich text section
type Section struct {
	Type     string `json:"type"`
	Elements []Leaf `json:"elements,omitempty"`
}

// Leaf is one leaf element inside a rich text section
type Leaf struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Elements flattens the event's rich text blocks into core message elements
// Anything malformed or unrecognized flattens to nothing, which downstream
// treats as not a grant attempt
func (e *Event) Elements() []message.Element {
	if e == nil || len(e.Blocks) == 0 {
		return nil
	}
	var out []message.Element
	for _, b := range e.Blocks {
		if b.Type != "rich_text" {
			continue
		}
		for _, s := range b.Elements {
			if !strings.HasPrefix(s.Type, "rich_text_") {
				continue
			}
			for _, l := range s.Elements {
				switch l.Type {
				case "emoji":
					if l.Name != "" {
						out = append(out, message.Element{Type: message.ElementEmoji, Name: l.Name})
					}
				case "user":
					if l.UserID != "" {
						out = append(out, message.Element{Type: message.ElementUser, UserID: l.UserID})
					}
				case "text":
					out = append(out, message.Element{Type: message.ElementText, Text: l.Text})
				}
			}
		}
	}
	return out
}

// Time parses the event's ts field, epoch seconds with a fractional part
// Returns false when the field is missing or malformed
func (e *Event) Time() (time.Time, bool) {
	if e == nil || e.TS == "" {
		return time.Time{}, false
	}
	sec, frac, _ := strings.Cut(e.TS, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	var ns int64
	if frac != "" {
		// pad or trim to nanosecond precision
		if len(frac) > 9 {
			frac = frac[:9]
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		for i := len(frac); i < 9; i++ {
			f *= 10
		}
		ns = f
	}
	return time.Unix(s, ns), true
}

// FromBot reports whether the event came from a bot or is a non-user
// subtype like message_changed, neither of which can grant
func (e *Event) FromBot() bool {
	if e == nil {
		return true
	}
	return e.BotID != "" || e.Subtype != "" || e.User == ""
}
