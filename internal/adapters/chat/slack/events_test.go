package slack

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"burrito/internal/core/message"
)

func TestEvent_Elements_FlattensRichText(t *testing.T) {
	t.Parallel()

	raw := `{
		"type": "message",
		"user": "U01",
		"channel": "C01",
		"ts": "1757000000.000100",
		"blocks": [
			{"type": "rich_text", "elements": [
				{"type": "rich_text_section", "elements": [
					{"type": "user", "user_id": "U02"},
					{"type": "text", "text": " "},
					{"type": "emoji", "name": "burrito"},
					{"type": "text", "text": " thanks!"}
				]}
			]}
		]
	}`

	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := ev.Elements()
	want := []message.Element{
		{Type: message.ElementUser, UserID: "U02"},
		{Type: message.ElementText, Text: " "},
		{Type: message.ElementEmoji, Name: "burrito"},
		{Type: message.ElementText, Text: " thanks!"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Elements = %+v, want %+v", got, want)
	}
}

func TestEvent_Elements_MalformedShapesFlattenToNothing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ev   *Event
	}{
		{"nil event", nil},
		{"no blocks", &Event{Type: "message"}},
		{"non rich text block", &Event{Blocks: []Block{{Type: "section"}}}},
		{
			"unknown leaf types only",
			&Event{Blocks: []Block{{
				Type:     "rich_text",
				Elements: []Section{{Type: "rich_text_section", Elements: []Leaf{{Type: "channel"}}}},
			}}},
		},
		{
			"emoji leaf without a name",
			&Event{Blocks: []Block{{
				Type:     "rich_text",
				Elements: []Section{{Type: "rich_text_section", Elements: []Leaf{{Type: "emoji"}}}},
			}}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.Elements(); got != nil {
				t.Fatalf("Elements = %+v, want nil", got)
			}
		})
	}
}

func TestEvent_Time(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ts   string
		want time.Time
		ok   bool
	}{
		{"seconds and micros", "1757000000.000100", time.Unix(1757000000, 100000), true},
		{"seconds only", "1757000000", time.Unix(1757000000, 0), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not-a-ts", time.Time{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev := &Event{TS: tc.ts}
			got, ok := ev.Time()
			if ok != tc.ok {
				t.Fatalf("Time ok = %v, want %v", ok, tc.ok)
			}
			if ok && !got.Equal(tc.want) {
				t.Fatalf("Time = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEvent_FromBot(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		ev   *Event
		want bool
	}{
		{"plain user message", &Event{User: "U01"}, false},
		{"bot id set", &Event{User: "U01", BotID: "B01"}, true},
		{"subtype set", &Event{User: "U01", Subtype: "message_changed"}, true},
		{"no user", &Event{}, true},
		{"nil", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.ev.FromBot(); got != tc.want {
				t.Fatalf("FromBot = %v, want %v", got, tc.want)
			}
		})
	}
}
