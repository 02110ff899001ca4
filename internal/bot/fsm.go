package bot

import (
	"time"

	"remindbot/pkg/timeparse"
)

// State is the closed set of conversation states for the create dialog.
type State int

const (
	StateMainMenu State = iota
	StateSetText
	StateSetTime
)

// Conversation is one user's dialog position plus collected data.
type Conversation struct {
	State  State
	ChatID int64
	Text   string
}

type InputKind int

const (
	InputStart InputKind = iota
	InputCreate
	InputCancel
	InputText
)

// Input is a single user action fed to the state machine. Now is carried
// along so transitions stay pure functions of their arguments.
type Input struct {
	Kind   InputKind
	ChatID int64
	Text   string
	Now    time.Time
}

type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectShowMenu
	EffectPromptText
	EffectPromptTime
	EffectBadTime
	EffectCreate
)

// Effect tells the router what to do after a transition; transitions
// themselves never touch I/O.
type Effect struct {
	Kind       EffectKind
	Text       string
	RemindTime time.Time
}

type transition func(Conversation, Input) (Conversation, Effect)

// The transition table is data: anything not listed leaves the
// conversation unchanged with no effect.
var transitions = map[State]map[InputKind]transition{
	StateMainMenu: {
		InputStart:  toMenu,
		InputCreate: beginCreate,
	},
	StateSetText: {
		InputStart:  toMenu,
		InputCreate: beginCreate,
		InputCancel: toMenu,
		InputText:   captureText,
	},
	StateSetTime: {
		InputStart:  toMenu,
		InputCreate: beginCreate,
		InputCancel: toMenu,
		InputText:   captureTime,
	},
}

// Step advances the conversation by one input.
func Step(conv Conversation, in Input) (Conversation, Effect) {
	if t, ok := transitions[conv.State][in.Kind]; ok {
		return t(conv, in)
	}
	return conv, Effect{Kind: EffectNone}
}

func toMenu(_ Conversation, in Input) (Conversation, Effect) {
	return Conversation{State: StateMainMenu, ChatID: in.ChatID}, Effect{Kind: EffectShowMenu}
}

func beginCreate(_ Conversation, in Input) (Conversation, Effect) {
	return Conversation{State: StateSetText, ChatID: in.ChatID}, Effect{Kind: EffectPromptText}
}

func captureText(conv Conversation, in Input) (Conversation, Effect) {
	conv.State = StateSetTime
	conv.Text = in.Text
	return conv, Effect{Kind: EffectPromptTime}
}

func captureTime(conv Conversation, in Input) (Conversation, Effect) {
	at, err := timeparse.Parse(in.Text, in.Now)
	if err != nil {
		// Stay in StateSetTime so the user can try again.
		return conv, Effect{Kind: EffectBadTime}
	}
	next := Conversation{State: StateMainMenu, ChatID: conv.ChatID}
	return next, Effect{Kind: EffectCreate, Text: conv.Text, RemindTime: at}
}
