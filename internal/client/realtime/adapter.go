package realtime

import (
	"encoding/json"
	"sync"

	"github.com/chatly-app/chatly-tui/internal/client/debug"
	"github.com/chatly-app/chatly-tui/internal/client/model"
	"github.com/chatly-app/chatly-tui/internal/client/store"
)

// Adapter wires inbound channel events into the conversation store without
// the store knowing the transport. One receiveMessage subscription exists
// per joined chat; every subscribe has exactly one matching unsubscribe.
type Adapter struct {
	ch    Channel
	chats *store.ConversationStore

	mu     sync.Mutex
	joined string
	off    func()
}

func NewAdapter(ch Channel, chats *store.ConversationStore) *Adapter {
	return &Adapter{ch: ch, chats: chats}
}

// JoinChat enters the chat's event room. Joining the already-joined chat is
// a no-op, so a selection change emits exactly one join. The previous
// subscription is torn down before the new one is attached.
func (a *Adapter) JoinChat(chatID string) error {
	a.mu.Lock()
	if a.joined == chatID {
		a.mu.Unlock()
		return nil
	}
	if a.off != nil {
		a.off()
		a.off = nil
	}
	a.joined = chatID
	a.off = a.ch.On(EventReceiveMessage, a.onReceive)
	a.mu.Unlock()

	return a.ch.Emit(EventJoinChat, chatID)
}

// LeaveChat tears down the current subscription. Called on deselect and on
// component teardown.
func (a *Adapter) LeaveChat() {
	a.mu.Lock()
	if a.off != nil {
		a.off()
		a.off = nil
	}
	a.joined = ""
	a.mu.Unlock()
}

// Joined returns the chat id of the active room, or "".
func (a *Adapter) Joined() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.joined
}

func (a *Adapter) onReceive(data json.RawMessage) {
	var m model.Message
	if err := json.Unmarshal(data, &m); err != nil {
		debug.Log("realtime: dropping malformed message: %v", err)
		return
	}
	// The selection is re-read at delivery time, not captured at
	// subscription time; the store applies the same check atomically.
	if a.chats.SelectedID() != m.Chat.ID {
		return
	}
	a.chats.AppendMessage(m)
}

// MessageSent fans the freshly persisted message out to the other
// participants. The REST write already happened; a failed emit is dropped.
func (a *Adapter) MessageSent(m model.Message) {
	if err := a.ch.Emit(EventSendMessage, m); err != nil {
		debug.Log("realtime: sendMessage emit failed: %v", err)
	}
}

// TypingEvent is the payload of typing and stopTyping.
type TypingEvent struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

// SubscribeTyping registers a callback for inbound typing state changes.
// The returned func removes both underlying subscriptions.
func (a *Adapter) SubscribeTyping(fn func(ev TypingEvent, typing bool)) func() {
	decode := func(data json.RawMessage, typing bool) {
		var ev TypingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return
		}
		fn(ev, typing)
	}
	offStart := a.ch.On(EventTyping, func(data json.RawMessage) { decode(data, true) })
	offStop := a.ch.On(EventStopTyping, func(data json.RawMessage) { decode(data, false) })
	return func() {
		offStart()
		offStop()
	}
}
