package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edusocial/internal/models"
)

var alice = models.User{ID: "u1", FullName: "Alice"}

func ids(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func TestMessageList_AddPending(t *testing.T) {
	l := NewMessageList()
	msg := l.AddPending("c1", alice, "hi", "")

	assert.True(t, strings.HasPrefix(msg.ID, models.TempIDPrefix))
	assert.Equal(t, msg.ID, msg.TempID)
	assert.Equal(t, models.MessageSending, msg.Status)
	assert.Equal(t, models.MessageText, msg.Type)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.Equal(t, 1, l.Len())
}

func TestMessageList_ConfirmationReplacesTemp(t *testing.T) {
	l := NewMessageList()
	l.Apply(models.Message{ID: "m0", Content: "before"})
	pending := l.AddPending("c1", alice, "hi", models.MessageText)

	changed := l.Apply(models.Message{ID: "m1", TempID: pending.TempID, Content: "hi"})
	require.True(t, changed)

	msgs := l.Messages()
	assert.Equal(t, []string{"m0", "m1"}, ids(msgs))
	assert.Equal(t, models.MessageSent, msgs[1].Status)

	// The broadcast of the same message arrives afterwards.
	assert.False(t, l.Apply(models.Message{ID: "m1", Content: "hi"}))
	assert.Equal(t, []string{"m0", "m1"}, ids(l.Messages()))
}

func TestMessageList_BroadcastBeforeConfirmation(t *testing.T) {
	l := NewMessageList()
	pending := l.AddPending("c1", alice, "hi", "")

	assert.True(t, l.Apply(models.Message{ID: "m1"}))
	assert.Equal(t, []string{pending.ID, "m1"}, ids(l.Messages()))

	assert.True(t, l.Apply(models.Message{ID: "m1", TempID: pending.TempID}))
	assert.Equal(t, []string{"m1"}, ids(l.Messages()))
}

func TestMessageList_DuplicateIDsIgnored(t *testing.T) {
	l := NewMessageList()
	assert.True(t, l.Apply(models.Message{ID: "m1"}))
	assert.False(t, l.Apply(models.Message{ID: "m1"}))
	assert.False(t, l.Apply(models.Message{}))
	assert.Equal(t, 1, l.Len())
}

func TestMessageList_MarkFailed(t *testing.T) {
	l := NewMessageList()
	pending := l.AddPending("c1", alice, "hi", "")

	assert.True(t, l.MarkFailed(pending.TempID, "network down"))
	assert.False(t, l.MarkFailed("temp_missing", "x"))

	msg, ok := l.Get(pending.ID)
	require.True(t, ok)
	assert.Equal(t, models.MessageFailed, msg.Status)
	assert.Equal(t, "network down", msg.FailureReason)
}

func TestMessageList_MarkDeletedRollback(t *testing.T) {
	l := NewMessageList()
	l.Reset([]models.Message{{ID: "m1", Content: "a"}, {ID: "m2", Content: "b"}, {ID: "m3", Content: "c"}})

	rollback := l.MarkDeleted("m2", true)
	require.NotNil(t, rollback)
	msg, _ := l.Get("m2")
	assert.True(t, msg.DeletedForEveryone)
	assert.Empty(t, msg.Content)
	rollback()
	msg, _ = l.Get("m2")
	assert.Equal(t, "b", msg.Content)
	assert.False(t, msg.IsDeleted)

	rollback = l.MarkDeleted("m2", false)
	assert.Equal(t, []string{"m1", "m3"}, ids(l.Messages()))
	rollback()
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(l.Messages()))

	assert.Nil(t, l.MarkDeleted("nope", false))
}

func TestMessageList_ResetDropsDuplicates(t *testing.T) {
	l := NewMessageList()
	l.AddPending("c1", alice, "x", "")
	l.Reset([]models.Message{{ID: "m1"}, {ID: "m1"}, {ID: ""}, {ID: "m2", Status: models.MessageFailed}})

	msgs := l.Messages()
	assert.Equal(t, []string{"m1", "m2"}, ids(msgs))
	assert.Equal(t, models.MessageSent, msgs[0].Status)
	assert.Equal(t, models.MessageFailed, msgs[1].Status)
}

func TestTypingSet(t *testing.T) {
	ts := NewTypingSet()
	ts.Set("c1", "u2", "Bob", true)
	ts.Set("c1", "u3", "", true)
	ts.Set("c2", "u2", "Bob", true)

	assert.Equal(t, []string{"Bob", "u3"}, ts.Typing("c1"))

	ts.Set("c1", "u2", "Bob", false)
	assert.Equal(t, []string{"u3"}, ts.Typing("c1"))

	ts.Clear("c2")
	assert.Empty(t, ts.Typing("c2"))
}
