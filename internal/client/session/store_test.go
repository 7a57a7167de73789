package session

import (
	"context"
	"errors"
	"testing"

	"github.com/chatly-app/chatly-tui/internal/client/model"
)

type fakeResolver struct {
	user *model.User
	err  error
}

func (f fakeResolver) CurrentUser(ctx context.Context) (*model.User, error) {
	return f.user, f.err
}

func TestResolveNoToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s := NewStore("test")
	err := s.Resolve(context.Background(), fakeResolver{})
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("Expected ErrNoSession, got %v", err)
	}
}

func TestResolveSuccess(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s := NewStore("test")
	if err := s.SetToken("tok-1"); err != nil {
		t.Fatal(err)
	}

	u := &model.User{ID: "u1", Username: "alex"}
	if err := s.Resolve(context.Background(), fakeResolver{user: u}); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := s.User(); got == nil || got.ID != "u1" {
		t.Errorf("Expected user u1, got %+v", got)
	}
	if !s.Authenticated() {
		t.Error("Expected authenticated session")
	}
}

func TestResolveFailClosed(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s := NewStore("test")
	if err := s.SetToken("tok-1"); err != nil {
		t.Fatal(err)
	}

	resolveErr := errors.New("401 unauthorized")
	if err := s.Resolve(context.Background(), fakeResolver{err: resolveErr}); err == nil {
		t.Fatal("Expected error")
	}

	if s.User() != nil {
		t.Error("Expected user to be cleared")
	}
	if s.Token() != "" {
		t.Error("Expected token to be cleared from the store")
	}
	if got := LoadToken("test"); got != "" {
		t.Errorf("Expected durable token to be cleared, got %q", got)
	}
}

func TestSubscribeNotifies(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	s := NewStore("test")
	calls := 0
	off := s.Subscribe(func() { calls++ })

	s.Login(&model.User{ID: "u1"})
	s.Update(&model.User{ID: "u1", Bio: "hi"})
	if calls != 2 {
		t.Fatalf("Expected 2 notifications, got %d", calls)
	}

	off()
	s.Logout()
	if calls != 2 {
		t.Errorf("Expected no notification after unsubscribe, got %d", calls)
	}
}
