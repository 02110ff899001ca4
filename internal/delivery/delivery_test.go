package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kit "remindbot/internal/transport"
	"remindbot/pkg/logx"
)

// fakeAdapter fails the first failN sends, then succeeds.
type fakeAdapter struct {
	mu    sync.Mutex
	failN int
	sent  []string
	calls int
}

func (f *fakeAdapter) Start(context.Context, chan<- kit.Update) error { return nil }
func (f *fakeAdapter) Stop(context.Context) error                     { return nil }

func (f *fakeAdapter) SendText(_ context.Context, _ int64, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return kit.MessageRef{}, errors.New("flood control")
	}
	f.sent = append(f.sent, text)
	return kit.MessageRef{ChatID: 1, MessageID: f.calls}, nil
}

func (f *fakeAdapter) EditText(context.Context, kit.MessageRef, string, *kit.SendOptions) error {
	return nil
}
func (f *fakeAdapter) AnswerCallback(context.Context, string, string) error { return nil }

func (f *fakeAdapter) snapshot() (int, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, append([]string(nil), f.sent...)
}

func newTestService(ad *fakeAdapter, retryMax int) *Service {
	return New(Config{
		RatePerSec: 1000,
		RetryMax:   retryMax,
		RetryBase:  time.Millisecond,
	}, ad, logx.Nop())
}

func TestSendAddsPrefix(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{}
	svc := newTestService(ad, 0)

	if err := svc.Send(context.Background(), 1, "buy milk"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_, sent := ad.snapshot()
	if len(sent) != 1 || sent[0] != "⏰ Reminder: buy milk" {
		t.Fatalf("sent = %q", sent)
	}
}

func TestSendRetriesTransientFailure(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failN: 2}
	svc := newTestService(ad, 3)

	if err := svc.Send(context.Background(), 1, "x"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	calls, sent := ad.snapshot()
	if calls != 3 || len(sent) != 1 {
		t.Fatalf("calls = %d, sent = %d", calls, len(sent))
	}
}

func TestSendGivesUpAfterRetries(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failN: 100}
	svc := newTestService(ad, 2)

	if err := svc.Send(context.Background(), 1, "x"); err == nil {
		t.Fatal("expected terminal error")
	}
	calls, _ := ad.snapshot()
	if calls != 3 { // first attempt + two retries
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestSendHonorsContextCancel(t *testing.T) {
	t.Parallel()
	ad := &fakeAdapter{failN: 100}
	svc := newTestService(ad, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Send(ctx, 1, "x"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
