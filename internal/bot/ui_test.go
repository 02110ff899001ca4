package bot

import (
	"strings"
	"testing"
	"time"

	"remindbot/internal/storage"
)

func TestTruncRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"", 5, ""},
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"overflowing", 8, "overflow…"},
		{"привет мир", 6, "привет…"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := truncRunes(tt.in, tt.n); got != tt.want {
			t.Fatalf("truncRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestListMarkupCarriesReminderIDs(t *testing.T) {
	t.Parallel()
	at := time.Date(2026, 9, 5, 8, 15, 0, 0, time.UTC)
	rems := []storage.Reminder{
		{ID: 11, Text: "water the plants every day", RemindTime: at},
		{ID: 12, Text: "short", RemindTime: at},
	}

	mk := listMarkup(rems)
	// One row per reminder plus the back row.
	if len(mk.InlineKeyboard) != 3 {
		t.Fatalf("rows = %d, want 3", len(mk.InlineKeyboard))
	}
	if got := mk.InlineKeyboard[0][0].Data; got != "delete_11" {
		t.Fatalf("first button data = %q", got)
	}
	if got := mk.InlineKeyboard[1][0].Data; got != "delete_12" {
		t.Fatalf("second button data = %q", got)
	}

	// Long texts are truncated in the label, and the fire time is shown.
	label := mk.InlineKeyboard[0][0].Text
	if strings.Contains(label, "every day") {
		t.Fatalf("label not truncated: %q", label)
	}
	if !strings.Contains(label, "05.09 08:15") {
		t.Fatalf("label missing time: %q", label)
	}
}

func TestListBodyEscapesHTML(t *testing.T) {
	t.Parallel()
	rems := []storage.Reminder{
		{ID: 1, Text: "check <b>alerts</b> & logs", RemindTime: time.Now()},
	}
	body := listBody(rems)
	if strings.Contains(body, "<b>alerts</b>") {
		t.Fatalf("user text not escaped: %q", body)
	}
	if !strings.Contains(body, "&lt;b&gt;alerts&lt;/b&gt; &amp; logs") {
		t.Fatalf("escaped text missing: %q", body)
	}
}

func TestListBodyEmpty(t *testing.T) {
	t.Parallel()
	if body := listBody(nil); !strings.Contains(body, "no upcoming reminders") {
		t.Fatalf("unexpected empty body: %q", body)
	}
}
