package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"remindbot/internal/storage"
)

// Callback data values. Delete buttons carry the reminder id after the
// prefix; everything fits well under Telegram's 64-byte limit.
const (
	cbCreate       = "create_reminder"
	cbList         = "list_reminders"
	cbCancel       = "cancel"
	cbDeletePrefix = "delete_"
)

const (
	labelTimeLayout = "02.01 15:04"
	labelTextRunes  = 15
)

// btn creates a callback button with raw callback_data (not encoded).
func btn(text, data string) tele.Btn {
	return tele.Btn{Text: text, Data: data}
}

func mainMenuMarkup() *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(
		rm.Row(btn("➕ New reminder", cbCreate)),
		rm.Row(btn("📋 My reminders", cbList)),
	)
	return rm
}

func cancelMarkup() *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rm.Inline(rm.Row(btn("✖️ Cancel", cbCancel)))
	return rm
}

// listMarkup renders one delete button per reminder plus a back row.
func listMarkup(rems []storage.Reminder) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(rems)+1)
	for _, r := range rems {
		rows = append(rows, rm.Row(btn(reminderLabel(r), fmt.Sprintf("%s%d", cbDeletePrefix, r.ID))))
	}
	rows = append(rows, rm.Row(btn("⬅️ Back", cbCancel)))
	rm.Inline(rows...)
	return rm
}

func reminderLabel(r storage.Reminder) string {
	return fmt.Sprintf("🗑 %s — %s", truncRunes(r.Text, labelTextRunes), r.RemindTime.Format(labelTimeLayout))
}

// listBody renders the HTML message shown above the delete buttons.
func listBody(rems []storage.Reminder) string {
	if len(rems) == 0 {
		return "You have no upcoming reminders."
	}
	var b strings.Builder
	b.WriteString("<b>Your reminders</b>\n")
	for i, r := range rems {
		fmt.Fprintf(&b, "\n%d. %s\n   <i>%s</i>", i+1, html.EscapeString(r.Text), r.RemindTime.Format(labelTimeLayout))
	}
	b.WriteString("\n\nTap a reminder below to delete it.")
	return b.String()
}

// truncRunes caps s at n runes, appending an ellipsis when cut.
func truncRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count, cut := 0, 0
	for i := range s {
		if count == n {
			cut = i
			break
		}
		count++
	}
	return s[:cut] + "…"
}
