// Package bot turns chat updates into reminder operations. The dialog for
// creating a reminder is a small explicit state machine (fsm.go); the router
// owns all I/O and applies the effects the machine emits.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"remindbot/internal/clock"
	"remindbot/internal/reminder"
	"remindbot/internal/session"
	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
)

const handleTimeout = 15 * time.Second

const greeting = "Hi! I can remind you about things at a time you choose.\n\nWhat would you like to do?"

type Router struct {
	log      logx.Logger
	clk      *clock.Source
	svc      *reminder.Service
	adapter  kit.Adapter
	sessions *session.Store[Conversation]
}

func NewRouter(clk *clock.Source, svc *reminder.Service, adapter kit.Adapter, sessionTTL time.Duration, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Router{
		log:      log,
		clk:      clk,
		svc:      svc,
		adapter:  adapter,
		sessions: session.NewStore[Conversation](sessionTTL),
	}
}

// Run consumes updates until ctx is cancelled or the channel closes.
func (r *Router) Run(ctx context.Context, updates <-chan kit.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			r.dispatch(ctx, u)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, u kit.Update) {
	hctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	switch u.Kind {
	case kit.UpdateMessage:
		if u.Message != nil {
			r.handleMessage(hctx, u.Message)
		}
	case kit.UpdateCallback:
		if u.Callback != nil {
			r.handleCallback(hctx, u.Callback)
		}
	}
}

func (r *Router) handleMessage(ctx context.Context, m *kit.Message) {
	if strings.TrimSpace(m.Text) == "/start" {
		r.step(ctx, m.FromID, Input{Kind: InputStart, ChatID: m.ChatID})
		return
	}

	if _, ok := r.sessions.Get(m.FromID); !ok {
		// Text outside any dialog; point the user at the menu.
		r.step(ctx, m.FromID, Input{Kind: InputStart, ChatID: m.ChatID})
		return
	}
	r.step(ctx, m.FromID, Input{Kind: InputText, ChatID: m.ChatID, Text: m.Text, Now: r.clk.Now()})
}

func (r *Router) handleCallback(ctx context.Context, cb *kit.Callback) {
	ref := kit.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}

	switch {
	case cb.Data == cbCreate:
		r.ack(ctx, cb.ID, "")
		r.stepEdit(ctx, cb.FromID, ref, Input{Kind: InputCreate, ChatID: cb.ChatID})

	case cb.Data == cbCancel:
		r.ack(ctx, cb.ID, "")
		r.stepEdit(ctx, cb.FromID, ref, Input{Kind: InputStart, ChatID: cb.ChatID})

	case cb.Data == cbList:
		r.ack(ctx, cb.ID, "")
		r.showList(ctx, cb.FromID, ref)

	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		r.deleteReminder(ctx, cb, ref)

	default:
		r.ack(ctx, cb.ID, "")
		r.log.Debug("unknown callback", logx.String("data", cb.Data))
	}
}

func (r *Router) showList(ctx context.Context, userID int64, ref kit.MessageRef) {
	rems, err := r.svc.ListForUser(ctx, userID)
	if err != nil {
		r.log.Error("list reminders", logx.Int64("user_id", userID), logx.Err(err))
		r.render(ctx, ref.ChatID, &ref, "Something went wrong, please try again.", nil)
		return
	}
	r.render(ctx, ref.ChatID, &ref, listBody(rems), &kit.SendOptions{ParseMode: "HTML", ReplyMarkup: listMarkup(rems)})
}

func (r *Router) deleteReminder(ctx context.Context, cb *kit.Callback, ref kit.MessageRef) {
	id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, cbDeletePrefix), 10, 64)
	if err != nil {
		r.ack(ctx, cb.ID, "")
		return
	}
	ok, err := r.svc.Delete(ctx, id)
	switch {
	case err != nil:
		r.log.Error("delete reminder", logx.Int64("reminder_id", id), logx.Err(err))
		r.ack(ctx, cb.ID, "Something went wrong.")
		return
	case !ok:
		// Already gone, likely fired or deleted from another tap.
		r.ack(ctx, cb.ID, "That reminder no longer exists.")
	default:
		r.ack(ctx, cb.ID, "Reminder deleted.")
	}
	r.showList(ctx, cb.FromID, ref)
}

// step advances the user's conversation and applies the effect via SendText.
func (r *Router) step(ctx context.Context, userID int64, in Input) {
	conv, _ := r.sessions.Get(userID)
	next, eff := Step(conv, in)
	r.sessions.Put(userID, next)
	r.apply(ctx, userID, in.ChatID, eff, nil)
}

// stepEdit is step, but the effect replaces the message the user tapped.
func (r *Router) stepEdit(ctx context.Context, userID int64, ref kit.MessageRef, in Input) {
	conv, _ := r.sessions.Get(userID)
	next, eff := Step(conv, in)
	r.sessions.Put(userID, next)
	r.apply(ctx, userID, in.ChatID, eff, &ref)
}

func (r *Router) apply(ctx context.Context, userID, chatID int64, eff Effect, ref *kit.MessageRef) {
	switch eff.Kind {
	case EffectNone:

	case EffectShowMenu:
		r.render(ctx, chatID, ref, greeting, &kit.SendOptions{ReplyMarkup: mainMenuMarkup()})

	case EffectPromptText:
		r.render(ctx, chatID, ref, "What should I remind you about?", &kit.SendOptions{ReplyMarkup: cancelMarkup()})

	case EffectPromptTime:
		r.render(ctx, chatID, ref,
			"When should I remind you?\n\nFor example: \"in 30 minutes\", \"tomorrow at 15:00\" or \"02.01 15:04\".",
			&kit.SendOptions{ReplyMarkup: cancelMarkup()})

	case EffectBadTime:
		r.render(ctx, chatID, ref,
			"I couldn't understand that time. Try \"in 30 minutes\" or \"tomorrow at 15:00\".",
			&kit.SendOptions{ReplyMarkup: cancelMarkup()})

	case EffectCreate:
		r.create(ctx, userID, chatID, eff)
	}
}

func (r *Router) create(ctx context.Context, userID, chatID int64, eff Effect) {
	rem, err := r.svc.Create(ctx, userID, chatID, eff.Text, eff.RemindTime)
	if err != nil {
		msg := "Something went wrong, please try again."
		switch {
		case errors.Is(err, reminder.ErrTextEmpty):
			msg = "The reminder text is empty. Start over and enter some text."
		case errors.Is(err, reminder.ErrTextTooLong):
			msg = "That text is too long, 500 characters at most."
		case errors.Is(err, reminder.ErrPastTime):
			msg = "That time is already in the past. Pick a future time."
		default:
			r.log.Error("create reminder", logx.Int64("user_id", userID), logx.Err(err))
		}
		r.render(ctx, chatID, nil, msg, &kit.SendOptions{ReplyMarkup: mainMenuMarkup()})
		return
	}
	r.render(ctx, chatID, nil,
		"✅ Done! I will remind you at "+rem.RemindTime.Format("02.01.2006 15:04")+".",
		&kit.SendOptions{ReplyMarkup: mainMenuMarkup()})
}

func (r *Router) render(ctx context.Context, chatID int64, ref *kit.MessageRef, text string, opt *kit.SendOptions) {
	if ref != nil {
		if err := r.adapter.EditText(ctx, *ref, text, opt); err == nil {
			return
		}
		// Edit can fail when the message is too old; fall through to a send.
	}
	if _, err := r.adapter.SendText(ctx, chatID, text, opt); err != nil {
		r.log.Warn("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func (r *Router) ack(ctx context.Context, callbackID, text string) {
	if err := r.adapter.AnswerCallback(ctx, callbackID, text); err != nil {
		r.log.Debug("callback ack failed", logx.Err(err))
	}
}
