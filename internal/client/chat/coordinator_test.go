package chat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatly-app/chatly-tui/internal/client/api"
	"github.com/chatly-app/chatly-tui/internal/client/model"
	"github.com/chatly-app/chatly-tui/internal/client/realtime"
	"github.com/chatly-app/chatly-tui/internal/client/session"
	"github.com/chatly-app/chatly-tui/internal/client/store"
)

type fakeChannel struct {
	mu       sync.Mutex
	emits    []string // event names in order
	payloads map[string][]json.RawMessage
	handlers map[string][]realtime.Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		payloads: make(map[string][]json.RawMessage),
		handlers: make(map[string][]realtime.Handler),
	}
}

func (f *fakeChannel) Emit(event string, v any) error {
	data, _ := json.Marshal(v)
	f.mu.Lock()
	f.emits = append(f.emits, event)
	f.payloads[event] = append(f.payloads[event], data)
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) On(event string, h realtime.Handler) func() {
	f.mu.Lock()
	f.handlers[event] = append(f.handlers[event], h)
	f.mu.Unlock()
	return func() {}
}

func (f *fakeChannel) Close() error { return nil }

func (f *fakeChannel) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.emits {
		if e == event {
			n++
		}
	}
	return n
}

type fixture struct {
	sess  *session.Store
	chats *store.ConversationStore
	ch    *fakeChannel
	coord *Coordinator
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sess := session.NewStore("test")
	require.NoError(t, sess.SetToken("tok-1"))

	chats := store.NewConversationStore()
	ch := newFakeChannel()
	adapter := realtime.NewAdapter(ch, chats)
	typist := realtime.NewTypist(ch, time.Minute)
	apiClient := api.New(srv.URL, sess)

	return &fixture{
		sess:  sess,
		chats: chats,
		ch:    ch,
		coord: NewCoordinator(apiClient, sess, chats, adapter, typist),
	}
}

func TestBootstrapIdentityFailClosed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"unauthorized"}`)
	})
	f := newFixture(t, mux)

	err := f.coord.Bootstrap(context.Background())
	require.Error(t, err)

	assert.Nil(t, f.sess.User())
	assert.Empty(t, f.sess.Token())
	assert.Empty(t, session.LoadToken("test"))
}

func TestBootstrapLoadsChatsAndSuggestions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"user":{"_id":"me","username":"alex"}}}`)
	})
	mux.HandleFunc("/chats", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"chats":[{"_id":"c1","isGroupChat":false,"users":[{"_id":"me"},{"_id":"u2"}]}]}}`)
	})
	mux.HandleFunc("/user/suggestions", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"users":[{"_id":"u3","username":"cara"}]}}`)
	})
	f := newFixture(t, mux)

	require.NoError(t, f.coord.Bootstrap(context.Background()))

	require.NotNil(t, f.sess.User())
	assert.Equal(t, "me", f.sess.User().ID)
	assert.Len(t, f.chats.Chats(), 1)
	assert.Len(t, f.chats.SuggestedUsers(), 1)
}

func TestOpenFetchesThenJoins(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c1", r.URL.Query().Get("chatId"))
		io.WriteString(w, `{"data":{"messages":[{"_id":"m1","chat":"c1","sender":{"_id":"u2"},"content":"hi"}]}}`)
	})
	f := newFixture(t, mux)

	c := model.Chat{ID: "c1"}
	f.chats.AddChat(c)
	require.NoError(t, f.coord.Open(context.Background(), c))

	require.Len(t, f.chats.Messages(), 1)
	assert.Equal(t, "m1", f.chats.Messages()[0].ID)
	assert.Equal(t, 1, f.ch.count(realtime.EventJoinChat))
}

func TestOpenDiscardsStaleResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		io.WriteString(w, `{"data":{"messages":[{"_id":"m1","chat":"a","sender":{"_id":"u2"},"content":"old"}]}}`)
	})
	f := newFixture(t, mux)

	a := model.Chat{ID: "a"}
	b := model.Chat{ID: "b"}
	f.chats.AddChat(a)
	f.chats.AddChat(b)

	done := make(chan error, 1)
	go func() {
		done <- f.coord.Open(context.Background(), a)
	}()

	<-entered
	// The user switches to B while A's fetch is in flight.
	f.chats.Select(&b)
	close(release)

	require.NoError(t, <-done)
	assert.Empty(t, f.chats.Messages())
	assert.Equal(t, "b", f.chats.SelectedID())
	// The stale open must not join A's room either.
	assert.Equal(t, 0, f.ch.count(realtime.EventJoinChat))
}

func TestSendAppendsEmitsAndFlushesTyping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"message":{"_id":"m1","chat":"c1","sender":{"_id":"me"},"content":"hello"}}}`)
	})
	f := newFixture(t, mux)

	c := model.Chat{ID: "c1"}
	f.chats.AddChat(c)
	f.chats.Select(&c)

	// Simulate composing before the send.
	f.coord.typist.Keystroke("c1", "me")

	msg, err := f.coord.Send(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	require.Len(t, f.chats.Messages(), 1)
	assert.Equal(t, 1, f.ch.count(realtime.EventSendMessage))
	assert.Equal(t, 1, f.ch.count(realtime.EventTyping))
	assert.Equal(t, 1, f.ch.count(realtime.EventStopTyping))
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t, http.NewServeMux())

	_, err := f.coord.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.coord.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestCreateGroupLandsAtFront(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/group", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"name":"Weekend Squad"`)
		io.WriteString(w, `{"data":{"chat":{
			"_id":"g1","isGroupChat":true,"chatName":"Weekend Squad",
			"groupAdmin":{"_id":"me","username":"alex"},
			"users":[{"_id":"me"},{"_id":"u1"},{"_id":"u2"}]
		}}}`)
	})
	f := newFixture(t, mux)
	f.chats.AddChat(model.Chat{ID: "old"})

	g, err := f.coord.CreateGroup(context.Background(), "Weekend Squad", []string{"u1", "u2"}, "")
	require.NoError(t, err)

	chats := f.chats.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, "g1", chats[0].ID)
	assert.True(t, chats[0].IsGroup)
	require.NotNil(t, g.GroupAdmin)
	assert.Equal(t, "me", g.GroupAdmin.ID)
	assert.Len(t, g.Users, 3)
}

func TestUpdateGroupMirrorsDescription(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/group/update", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"chat":{
			"_id":"g1","isGroupChat":true,"chatName":"Weekend Squad",
			"chatDescription":"new plans","users":[{"_id":"me"}]
		}}}`)
	})
	f := newFixture(t, mux)

	g := model.Chat{ID: "g1", IsGroup: true, Name: "Weekend Squad"}
	f.chats.AddChat(g)
	f.chats.Select(&g)

	_, err := f.coord.UpdateGroup(context.Background(), "g1", "Weekend Squad", "new plans", "")
	require.NoError(t, err)

	// The detail view reads the selection mirror; no re-fetch happened.
	require.NotNil(t, f.chats.Selected())
	assert.Equal(t, "new plans", f.chats.Selected().Description)
}

func TestLeaveGroupRemovesChatAndLeavesRoom(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/group/leave", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	})
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"messages":[]}}`)
	})
	f := newFixture(t, mux)

	g := model.Chat{ID: "g1", IsGroup: true}
	f.chats.AddChat(g)
	require.NoError(t, f.coord.Open(context.Background(), g))

	require.NoError(t, f.coord.LeaveGroup(context.Background(), "g1"))

	assert.Empty(t, f.chats.Chats())
	assert.Nil(t, f.chats.Selected())
	assert.Empty(t, f.chats.Messages())
}

func TestAddAndRemoveMember(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/chats/group/add", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"chat":{
			"_id":"g1","isGroupChat":true,
			"users":[{"_id":"me"},{"_id":"u2","username":"cara","avatar":"a.png"}]
		}}}`)
	})
	mux.HandleFunc("/chats/group/remove", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{}}`)
	})
	f := newFixture(t, mux)

	g := model.Chat{ID: "g1", IsGroup: true, Users: []model.User{{ID: "me"}}}
	f.chats.AddChat(g)
	f.chats.Select(&g)

	require.NoError(t, f.coord.AddMember(context.Background(), "g1", model.User{ID: "u2"}))
	require.Len(t, f.chats.Selected().Users, 2)
	// The server's copy of the user wins over the caller's.
	assert.Equal(t, "cara", f.chats.Selected().Users[1].Username)

	require.NoError(t, f.coord.RemoveMember(context.Background(), "g1", "u2"))
	assert.Len(t, f.chats.Selected().Users, 1)
}
