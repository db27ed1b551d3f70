// Package chat keeps a conversation's displayed messages consistent with
// optimistic local sends and server broadcasts.
package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"edusocial/internal/models"
)

// MessageList is the ordered message list of one open conversation.
type MessageList struct {
	mu    sync.Mutex
	items []models.Message
	now   func() time.Time
}

func NewMessageList() *MessageList {
	return &MessageList{now: time.Now}
}

// NewTempID returns a client-side id for an optimistic message.
func NewTempID() string {
	return models.TempIDPrefix + uuid.NewString()
}

// AddPending appends an optimistic record with status sending.
func (l *MessageList) AddPending(conversationID string, sender models.User, content, msgType string) models.Message {
	if msgType == "" {
		msgType = models.MessageText
	}
	id := NewTempID()
	msg := models.Message{
		ID:             id,
		TempID:         id,
		ConversationID: conversationID,
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName(),
		SenderAvatar:   sender.Avatar,
		Content:        content,
		Type:           msgType,
		Status:         models.MessageSending,
		CreatedAt:      l.now(),
	}

	l.mu.Lock()
	l.items = append(l.items, msg)
	l.mu.Unlock()
	return msg
}

// Apply merges a server record. A record carrying the temp id of a pending
// message replaces it; any other record is appended unless its id is
// already listed. Records without an id are ignored. It reports whether the
// list changed.
func (l *MessageList) Apply(msg models.Message) bool {
	if msg.ID == "" {
		return false
	}
	if msg.Status == "" || msg.Status == models.MessageSending {
		msg.Status = models.MessageSent
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	existing := l.index(msg.ID)
	if msg.TempID != "" && msg.TempID != msg.ID {
		if tmp := l.index(msg.TempID); tmp >= 0 {
			if existing >= 0 {
				l.items = append(l.items[:tmp], l.items[tmp+1:]...)
				return true
			}
			l.items[tmp] = msg
			return true
		}
	}
	if existing >= 0 {
		return false
	}
	l.items = append(l.items, msg)
	return true
}

// MarkFailed flags a pending message as failed. Failed messages are never
// resent automatically.
func (l *MessageList) MarkFailed(tempID, reason string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.index(tempID)
	if i < 0 {
		return false
	}
	l.items[i].Status = models.MessageFailed
	l.items[i].FailureReason = reason
	return true
}

// MarkDeleted applies a delete locally. A delete for everyone keeps a
// tombstone, a delete for me drops the record. The returned func restores
// the previous state; it is nil when id is not listed.
func (l *MessageList) MarkDeleted(id string, forEveryone bool) (rollback func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return nil
	}
	prev := l.items[i]
	if forEveryone {
		l.items[i].IsDeleted = true
		l.items[i].DeletedForEveryone = true
		l.items[i].Content = ""
	} else {
		l.items = append(l.items[:i], l.items[i+1:]...)
	}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if j := l.index(prev.ID); j >= 0 {
			l.items[j] = prev
			return
		}
		if i > len(l.items) {
			i = len(l.items)
		}
		l.items = append(l.items, models.Message{})
		copy(l.items[i+1:], l.items[i:])
		l.items[i] = prev
	}
}

// Reset replaces the list with a freshly loaded history, dropping
// duplicate ids.
func (l *MessageList) Reset(msgs []models.Message) {
	seen := make(map[string]bool, len(msgs))
	items := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		if m.Status == "" {
			m.Status = models.MessageSent
		}
		items = append(items, m)
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
}

func (l *MessageList) Get(id string) (models.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	return models.Message{}, false
}

// Messages returns a copy of the list in display order.
func (l *MessageList) Messages() []models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.Message(nil), l.items...)
}

func (l *MessageList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *MessageList) index(id string) int {
	for i := range l.items {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}
