package store

import (
	"sync"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

// ConversationStore holds the chat list, the selected chat and the message
// timeline for the selection. Mutations are atomic; readers get copies.
// Messages are only kept for the selected chat; switching chats means a
// fresh fetch, never a cache hit.
type ConversationStore struct {
	mu        sync.RWMutex
	chats     []model.Chat
	suggested []model.User
	selected  *model.Chat
	messages  []model.Message

	watchers    map[int]func()
	nextWatcher int
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{watchers: make(map[int]func())}
}

// SetChats replaces the list verbatim. The source (a bulk fetch) is
// authoritative, so no dedup.
func (s *ConversationStore) SetChats(chats []model.Chat) {
	s.mu.Lock()
	s.chats = chats
	s.mu.Unlock()
	s.notify()
}

// AddChat inserts at the front if no chat with the same id exists.
// Strictly insert-if-absent: an existing entry keeps its fields.
func (s *ConversationStore) AddChat(c model.Chat) {
	s.mu.Lock()
	for i := range s.chats {
		if s.chats[i].ID == c.ID {
			s.mu.Unlock()
			return
		}
	}
	s.chats = append([]model.Chat{c}, s.chats...)
	s.mu.Unlock()
	s.notify()
}

// UpdateChat replaces the entry with a matching id, and mirrors the
// replacement onto the selection so the detail view and the list entry
// never diverge.
func (s *ConversationStore) UpdateChat(c model.Chat) {
	s.mu.Lock()
	for i := range s.chats {
		if s.chats[i].ID == c.ID {
			s.chats[i] = c
		}
	}
	if s.selected != nil && s.selected.ID == c.ID {
		cc := c
		s.selected = &cc
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveChat deletes the entry. If it was selected, the selection and the
// message timeline are cleared in the same critical section so no stale
// messages can leak into an unrelated view.
func (s *ConversationStore) RemoveChat(id string) {
	s.mu.Lock()
	kept := s.chats[:0]
	for _, c := range s.chats {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
		s.messages = nil
	}
	s.mu.Unlock()
	s.notify()
}

// Select sets the selected chat, or clears it with nil. Messages are not
// touched here; callers fetch or clear them per the fetch contract.
func (s *ConversationStore) Select(c *model.Chat) {
	s.mu.Lock()
	if c == nil {
		s.selected = nil
	} else {
		cc := *c
		s.selected = &cc
	}
	s.mu.Unlock()
	s.notify()
}

// Selected returns a copy of the selected chat, or nil.
func (s *ConversationStore) Selected() *model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	cc := *s.selected
	return &cc
}

// SelectedID returns the selected chat id, or "".
func (s *ConversationStore) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return ""
	}
	return s.selected.ID
}

func (s *ConversationStore) Chats() []model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chat, len(s.chats))
	copy(out, s.chats)
	return out
}

func (s *ConversationStore) SetSuggestedUsers(users []model.User) {
	s.mu.Lock()
	s.suggested = users
	s.mu.Unlock()
	s.notify()
}

func (s *ConversationStore) SuggestedUsers() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.User, len(s.suggested))
	copy(out, s.suggested)
	return out
}

// SetMessages replaces the timeline. The caller is responsible for having
// verified the response still targets the current selection (race policy).
func (s *ConversationStore) SetMessages(msgs []model.Message) {
	s.mu.Lock()
	s.messages = msgs
	s.mu.Unlock()
	s.notify()
}

// AppendMessage appends iff the message belongs to the chat selected at
// the time of this call. Unrelated messages are dropped from the visible
// timeline. Reports whether the message was appended.
func (s *ConversationStore) AppendMessage(m model.Message) bool {
	s.mu.Lock()
	if s.selected == nil || s.selected.ID != m.Chat.ID {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, m)
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *ConversationStore) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AddParticipant appends the user to the chat's participant list, on both
// the list entry and the selected mirror.
func (s *ConversationStore) AddParticipant(chatID string, u model.User) {
	s.mu.Lock()
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Users = append(s.chats[i].Users, u)
		}
	}
	if s.selected != nil && s.selected.ID == chatID {
		s.selected.Users = append(s.selected.Users, u)
	}
	s.mu.Unlock()
	s.notify()
}

// RemoveParticipant removes the user from the chat's participant list, on
// both the list entry and the selected mirror.
func (s *ConversationStore) RemoveParticipant(chatID, userID string) {
	s.mu.Lock()
	for i := range s.chats {
		if s.chats[i].ID == chatID {
			s.chats[i].Users = withoutUser(s.chats[i].Users, userID)
		}
	}
	if s.selected != nil && s.selected.ID == chatID {
		s.selected.Users = withoutUser(s.selected.Users, userID)
	}
	s.mu.Unlock()
	s.notify()
}

func withoutUser(users []model.User, userID string) []model.User {
	kept := make([]model.User, 0, len(users))
	for _, u := range users {
		if u.ID != userID {
			kept = append(kept, u)
		}
	}
	return kept
}

// Subscribe registers a change callback, invoked after every mutation.
// The returned func removes it.
func (s *ConversationStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *ConversationStore) notify() {
	s.mu.RLock()
	watchers := make([]func(), 0, len(s.watchers))
	for _, fn := range s.watchers {
		watchers = append(watchers, fn)
	}
	s.mu.RUnlock()
	for _, fn := range watchers {
		fn()
	}
}
