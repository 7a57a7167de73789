package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

func chat(id string) model.Chat {
	return model.Chat{ID: id, Users: []model.User{{ID: "u1"}, {ID: "u2"}}}
}

func msg(id, chatID string) model.Message {
	return model.Message{ID: id, Chat: model.ChatRef{ID: chatID}, Content: "hello"}
}

func TestAddChatInsertsAtFront(t *testing.T) {
	s := NewConversationStore()
	s.AddChat(chat("a"))
	s.AddChat(chat("b"))

	chats := s.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, "b", chats[0].ID)
	assert.Equal(t, "a", chats[1].ID)
}

func TestAddChatIdempotent(t *testing.T) {
	s := NewConversationStore()

	first := chat("a")
	first.Name = "original"
	s.AddChat(first)

	second := chat("a")
	second.Name = "changed"
	s.AddChat(second)

	chats := s.Chats()
	require.Len(t, chats, 1)
	// Insert-if-absent: the existing entry keeps its fields.
	assert.Equal(t, "original", chats[0].Name)
}

func TestSetChatsReplacesVerbatim(t *testing.T) {
	s := NewConversationStore()
	s.AddChat(chat("a"))

	s.SetChats([]model.Chat{chat("x"), chat("y")})
	chats := s.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, "x", chats[0].ID)
}

func TestUpdateChatMirrorsSelection(t *testing.T) {
	s := NewConversationStore()
	c := chat("g")
	c.IsGroup = true
	s.AddChat(c)
	s.Select(&c)

	updated := c
	updated.Description = "weekend plans"
	s.UpdateChat(updated)

	sel := s.Selected()
	require.NotNil(t, sel)
	assert.Equal(t, "weekend plans", sel.Description)
	assert.Equal(t, "weekend plans", s.Chats()[0].Description)
}

func TestUpdateChatIgnoresUnselected(t *testing.T) {
	s := NewConversationStore()
	a, b := chat("a"), chat("b")
	s.AddChat(a)
	s.AddChat(b)
	s.Select(&a)

	updated := b
	updated.Name = "renamed"
	s.UpdateChat(updated)

	require.NotNil(t, s.Selected())
	assert.Equal(t, "a", s.Selected().ID)
	assert.Empty(t, s.Selected().Name)
}

func TestRemoveChatClearsSelectionAndMessages(t *testing.T) {
	s := NewConversationStore()
	c := chat("a")
	s.AddChat(c)
	s.Select(&c)
	s.SetMessages([]model.Message{msg("m1", "a")})

	s.RemoveChat("a")

	assert.Empty(t, s.Chats())
	assert.Nil(t, s.Selected())
	assert.Empty(t, s.Messages())
}

func TestRemoveChatKeepsUnrelatedSelection(t *testing.T) {
	s := NewConversationStore()
	a, b := chat("a"), chat("b")
	s.AddChat(a)
	s.AddChat(b)
	s.Select(&a)
	s.SetMessages([]model.Message{msg("m1", "a")})

	s.RemoveChat("b")

	require.NotNil(t, s.Selected())
	assert.Equal(t, "a", s.Selected().ID)
	assert.Len(t, s.Messages(), 1)
}

func TestAppendMessageFiltersByLiveSelection(t *testing.T) {
	s := NewConversationStore()
	a, b := chat("a"), chat("b")
	s.AddChat(a)
	s.AddChat(b)

	s.Select(&a)
	assert.True(t, s.AppendMessage(msg("m1", "a")))

	// The user switches away; a late message for A must not land in B's view.
	s.Select(&b)
	s.SetMessages(nil)
	assert.False(t, s.AppendMessage(msg("m2", "a")))
	assert.Empty(t, s.Messages())

	assert.True(t, s.AppendMessage(msg("m3", "b")))
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "m3", s.Messages()[0].ID)
}

func TestAppendMessageNoSelection(t *testing.T) {
	s := NewConversationStore()
	assert.False(t, s.AppendMessage(msg("m1", "a")))
}

func TestSelectDoesNotTouchMessages(t *testing.T) {
	s := NewConversationStore()
	a, b := chat("a"), chat("b")
	s.AddChat(a)
	s.AddChat(b)
	s.Select(&a)
	s.SetMessages([]model.Message{msg("m1", "a")})

	// Select alone leaves messages; the fetch contract owns clearing them.
	s.Select(&b)
	assert.Len(t, s.Messages(), 1)
}

func TestParticipantDualWrite(t *testing.T) {
	s := NewConversationStore()
	g := chat("g")
	g.IsGroup = true
	s.AddChat(g)
	s.Select(&g)

	s.AddParticipant("g", model.User{ID: "u3", Username: "cara"})
	require.Len(t, s.Selected().Users, 3)
	require.Len(t, s.Chats()[0].Users, 3)

	s.RemoveParticipant("g", "u2")
	assert.Len(t, s.Selected().Users, 2)
	assert.Len(t, s.Chats()[0].Users, 2)
	for _, u := range s.Selected().Users {
		assert.NotEqual(t, "u2", u.ID)
	}
}

func TestSuggestedUsers(t *testing.T) {
	s := NewConversationStore()
	s.SetSuggestedUsers([]model.User{{ID: "u1"}, {ID: "u2"}})
	assert.Len(t, s.SuggestedUsers(), 2)
}

func TestSubscribe(t *testing.T) {
	s := NewConversationStore()
	calls := 0
	off := s.Subscribe(func() { calls++ })

	s.AddChat(chat("a"))
	s.SetMessages(nil)
	assert.Equal(t, 2, calls)

	off()
	s.AddChat(chat("b"))
	assert.Equal(t, 2, calls)
}
