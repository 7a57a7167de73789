package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestAuthHeaderAndRequestID(t *testing.T) {
	var gotAuth, gotReqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		io.WriteString(w, `{"data":{"user":{"_id":"u1","username":"alex"}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("tok-1"))
	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotReqID)
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken(""))
	require.NoError(t, c.SendOTP(context.Background(), "a@b.c"))
	assert.Empty(t, gotAuth)
}

func TestErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"message":"token expired"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("stale"))
	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "token expired", apiErr.Error())
}

func TestListChatsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chats", r.URL.Path)
		io.WriteString(w, `{"data":{"chats":[
			{"_id":"c1","isGroupChat":false,"users":[{"_id":"u1"},{"_id":"u2"}]},
			{"_id":"c2","isGroupChat":true,"chatName":"Weekend Squad","users":[{"_id":"u1"}],"groupAdmin":{"_id":"u1"}}
		]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	chats, err := c.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.False(t, chats[0].IsGroup)
	assert.Equal(t, "Weekend Squad", chats[1].Name)
	require.NotNil(t, chats[1].GroupAdmin)
	assert.Equal(t, "u1", chats[1].GroupAdmin.ID)
}

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "c1", req["chatId"])
		assert.Equal(t, "hello", req["content"])
		io.WriteString(w, `{"data":{"message":{"_id":"m1","chat":{"_id":"c1"},"sender":{"_id":"u1"},"content":"hello"}}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	m, err := c.SendMessage(context.Background(), "c1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "c1", m.Chat.ID)
}

func TestListMessagesChatRefAsString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c1", r.URL.Query().Get("chatId"))
		io.WriteString(w, `{"data":{"messages":[
			{"_id":"m1","chat":"c1","sender":{"_id":"u2"},"content":"hi"}
		]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	msgs, err := c.ListMessages(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "c1", msgs[0].Chat.ID)
}

func TestRemoveFromGroupDeleteWithBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/chats/group/remove", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"userId":"u2"`)
		io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("t"))
	require.NoError(t, c.RemoveFromGroup(context.Background(), "c1", "u2"))
}

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "chatly-unsigned", r.FormValue("upload_preset"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "avatar.png", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "png-bytes", string(data))

		io.WriteString(w, `{"secure_url":"https://img.example/avatar.png"}`)
	}))
	defer srv.Close()

	u := newUploaderForURL(srv.URL, "chatly-unsigned")
	url, err := u.Upload(context.Background(), "avatar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/avatar.png", url)
}
