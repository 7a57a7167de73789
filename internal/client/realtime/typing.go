package realtime

import (
	"sync"
	"time"

	"github.com/chatly-app/chatly-tui/internal/client/debug"
)

// DefaultTypingDelay is how long after the last keystroke stopTyping fires.
const DefaultTypingDelay = time.Second

// Typist debounces the local typing indicator. The first keystroke emits
// typing once; an idle timer emits stopTyping; a successful send flushes
// the indicator immediately so it never lingers past the message itself.
type Typist struct {
	ch    Channel
	delay time.Duration

	mu     sync.Mutex
	typing bool
	timer  *time.Timer
	ev     TypingEvent
}

func NewTypist(ch Channel, delay time.Duration) *Typist {
	if delay <= 0 {
		delay = DefaultTypingDelay
	}
	return &Typist{ch: ch, delay: delay}
}

// Keystroke records input activity in the given chat. It restarts the idle
// timer; switching chats mid-typing stops the old chat's indicator first.
func (t *Typist) Keystroke(chatID, userID string) {
	t.mu.Lock()

	if t.typing && t.ev.ChatID != chatID {
		t.emitStopLocked()
	}

	if !t.typing {
		t.typing = true
		t.ev = TypingEvent{ChatID: chatID, UserID: userID}
		if err := t.ch.Emit(EventTyping, t.ev); err != nil {
			debug.Log("realtime: typing emit failed: %v", err)
		}
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.delay, t.idle)
	t.mu.Unlock()
}

func (t *Typist) idle() {
	t.mu.Lock()
	t.emitStopLocked()
	t.mu.Unlock()
}

// Flush emits stopTyping immediately. Called after a successful send.
func (t *Typist) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.emitStopLocked()
	t.mu.Unlock()
}

func (t *Typist) emitStopLocked() {
	if !t.typing {
		return
	}
	t.typing = false
	if err := t.ch.Emit(EventStopTyping, t.ev); err != nil {
		debug.Log("realtime: stopTyping emit failed: %v", err)
	}
}
