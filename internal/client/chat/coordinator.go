// Package chat sequences REST calls, store mutations and realtime room
// membership so the individual pieces stay order-correct: messages are
// fetched before the room is joined, and stale fetch responses are
// discarded instead of cancelled.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/chatly-app/chatly-tui/internal/client/api"
	"github.com/chatly-app/chatly-tui/internal/client/debug"
	"github.com/chatly-app/chatly-tui/internal/client/model"
	"github.com/chatly-app/chatly-tui/internal/client/realtime"
	"github.com/chatly-app/chatly-tui/internal/client/session"
	"github.com/chatly-app/chatly-tui/internal/client/store"
)

var (
	ErrNoSelection  = errors.New("chat: no chat selected")
	ErrEmptyMessage = errors.New("chat: message cannot be empty")
)

type Coordinator struct {
	api     *api.Client
	session *session.Store
	chats   *store.ConversationStore
	adapter *realtime.Adapter
	typist  *realtime.Typist // may be nil when no channel is up
}

func NewCoordinator(apiClient *api.Client, sess *session.Store, chats *store.ConversationStore, adapter *realtime.Adapter, typist *realtime.Typist) *Coordinator {
	return &Coordinator{
		api:     apiClient,
		session: sess,
		chats:   chats,
		adapter: adapter,
		typist:  typist,
	}
}

// Bootstrap resolves the stored identity (fail-closed) and loads the chat
// list and the suggestion list.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	if err := c.session.Resolve(ctx, c.api); err != nil {
		return err
	}

	chats, err := c.api.ListChats(ctx)
	if err != nil {
		return err
	}
	c.chats.SetChats(chats)

	users, err := c.api.SuggestedUsers(ctx)
	if err != nil {
		return err
	}
	c.chats.SetSuggestedUsers(users)
	return nil
}

// Open selects the chat, fetches its timeline, then joins its event room.
// The fetch always precedes the join, so nothing delivered after the
// subscription is attached can be missing from the fetched history. A
// response arriving after the user moved on is discarded.
func (c *Coordinator) Open(ctx context.Context, chat model.Chat) error {
	c.chats.Select(&chat)
	c.chats.SetMessages(nil)

	msgs, err := c.api.ListMessages(ctx, chat.ID)
	if err != nil {
		return err
	}
	if c.chats.SelectedID() != chat.ID {
		debug.Log("chat: dropping stale message fetch for %s", chat.ID)
		return nil
	}
	c.chats.SetMessages(msgs)

	return c.adapter.JoinChat(chat.ID)
}

// Close deselects and leaves the event room. Messages are cleared in the
// same step so nothing stale can show on the next selection.
func (c *Coordinator) Close() {
	c.adapter.LeaveChat()
	c.chats.Select(nil)
	c.chats.SetMessages(nil)
}

// Send performs the durable write, appends locally, fans out over the
// channel and clears the typing indicator.
func (c *Coordinator) Send(ctx context.Context, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	chatID := c.chats.SelectedID()
	if chatID == "" {
		return nil, ErrNoSelection
	}

	msg, err := c.api.SendMessage(ctx, chatID, content)
	if err != nil {
		return nil, err
	}

	c.chats.AppendMessage(*msg)
	c.adapter.MessageSent(*msg)
	if c.typist != nil {
		c.typist.Flush()
	}
	return msg, nil
}

// OpenDirect opens (or creates) the direct chat with the given user and
// enters it.
func (c *Coordinator) OpenDirect(ctx context.Context, userID string) (*model.Chat, error) {
	chat, err := c.api.AccessChat(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.chats.AddChat(*chat)
	if err := c.Open(ctx, *chat); err != nil {
		return chat, err
	}
	return chat, nil
}

// CreateGroup creates the group server-side and puts it at the front of
// the list.
func (c *Coordinator) CreateGroup(ctx context.Context, name string, userIDs []string, avatar string) (*model.Chat, error) {
	chat, err := c.api.CreateGroup(ctx, name, userIDs, avatar)
	if err != nil {
		return nil, err
	}
	c.chats.AddChat(*chat)
	return chat, nil
}

// AddMember adds the user to the group and dual-writes the participant
// into the list entry and the selection mirror.
func (c *Coordinator) AddMember(ctx context.Context, chatID string, u model.User) error {
	updated, err := c.api.AddToGroup(ctx, chatID, []string{u.ID})
	if err != nil {
		return err
	}
	// Prefer the server's copy of the user if present.
	for _, su := range updated.Users {
		if su.ID == u.ID {
			u = su
			break
		}
	}
	c.chats.AddParticipant(chatID, u)
	return nil
}

func (c *Coordinator) RemoveMember(ctx context.Context, chatID, userID string) error {
	if err := c.api.RemoveFromGroup(ctx, chatID, userID); err != nil {
		return err
	}
	c.chats.RemoveParticipant(chatID, userID)
	return nil
}

// LeaveGroup leaves server-side, drops the chat from the list and exits
// its event room if it was open.
func (c *Coordinator) LeaveGroup(ctx context.Context, chatID string) error {
	if err := c.api.LeaveGroup(ctx, chatID); err != nil {
		return err
	}
	if c.adapter.Joined() == chatID {
		c.adapter.LeaveChat()
	}
	c.chats.RemoveChat(chatID)
	return nil
}

// UpdateGroup patches group metadata; the store mirrors the change onto
// the selection so the detail view updates without a re-fetch.
func (c *Coordinator) UpdateGroup(ctx context.Context, chatID, name, description, avatar string) (*model.Chat, error) {
	updated, err := c.api.UpdateGroup(ctx, chatID, name, description, avatar)
	if err != nil {
		return nil, err
	}
	c.chats.UpdateChat(*updated)
	return updated, nil
}

// UpdateProfile saves profile edits and refreshes the session user.
func (c *Coordinator) UpdateProfile(ctx context.Context, avatar, username, bio string) error {
	u, err := c.api.UpdateProfile(ctx, avatar, username, bio)
	if err != nil {
		return err
	}
	c.session.Update(u)
	return nil
}

// Logout drops the session and the durable token.
func (c *Coordinator) Logout() {
	c.adapter.LeaveChat()
	c.session.Logout()
}
