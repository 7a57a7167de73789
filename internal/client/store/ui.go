package store

import "sync"

// Modal identifies the overlay currently shown. At most one is active.
type Modal string

const (
	ModalNone             Modal = ""
	ModalSearch           Modal = "search"
	ModalGroupChat        Modal = "group-chat"
	ModalProfile          Modal = "profile"
	ModalViewProfile      Modal = "view-profile"
	ModalViewGroupProfile Modal = "view-group-profile"
)

// ModalStore is the global UI signal store: which modal is open, if any.
type ModalStore struct {
	mu     sync.RWMutex
	active Modal
}

func NewModalStore() *ModalStore {
	return &ModalStore{}
}

// Open replaces whatever modal was active. Modals are mutually exclusive.
func (s *ModalStore) Open(m Modal) {
	s.mu.Lock()
	s.active = m
	s.mu.Unlock()
}

func (s *ModalStore) Close() {
	s.mu.Lock()
	s.active = ModalNone
	s.mu.Unlock()
}

func (s *ModalStore) Active() Modal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}
