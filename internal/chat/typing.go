package chat

import (
	"sort"
	"sync"
)

// TypingSet tracks who is typing in each conversation.
type TypingSet struct {
	mu    sync.Mutex
	users map[string]map[string]string
}

func NewTypingSet() *TypingSet {
	return &TypingSet{users: make(map[string]map[string]string)}
}

// Set records a typing indicator. name is what gets displayed.
func (t *TypingSet) Set(conversationID, userID, name string, typing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conv := t.users[conversationID]
	if !typing {
		delete(conv, userID)
		if len(conv) == 0 {
			delete(t.users, conversationID)
		}
		return
	}
	if conv == nil {
		conv = make(map[string]string)
		t.users[conversationID] = conv
	}
	if name == "" {
		name = userID
	}
	conv[userID] = name
}

// Typing returns the display names typing in a conversation, sorted.
func (t *TypingSet) Typing(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.users[conversationID]))
	for _, n := range t.users[conversationID] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *TypingSet) Clear(conversationID string) {
	t.mu.Lock()
	delete(t.users, conversationID)
	t.mu.Unlock()
}
