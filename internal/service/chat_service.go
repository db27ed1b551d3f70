package service

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/chat"
	"edusocial/internal/config"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/realtime"
	"edusocial/internal/session"
	"edusocial/internal/storage"
)

// Chat event types pushed on a conversation topic.
const (
	EventNewMessage     = "NEW_MESSAGE"
	EventMessageSent    = "MESSAGE_SENT"
	EventMessageDeleted = "MESSAGE_DELETED"
	EventMessageFailed  = "MESSAGE_FAILED"
	EventTyping         = "TYPING"
)

// Destinations published to.
const (
	DestJoin          = "/chat.join"
	DestTyping        = "/chat.typing"
	DestDeleteMessage = "/chat.deleteMessage"
)

const deletedSummary = "Message deleted"

func ConversationTopic(conversationID string) string {
	return "/topic/conversation." + conversationID
}

func TypingTopic(conversationID string) string {
	return ConversationTopic(conversationID) + ".typing"
}

type ChatService interface {
	Conversations(ctx context.Context) ([]models.Conversation, error)
	Summaries() []models.Conversation
	Open(ctx context.Context, conversationID string) (*chat.MessageList, error)
	Close(conversationID string)
	Send(ctx context.Context, conversationID, content string) (*models.Message, error)
	SendFile(ctx context.Context, conversationID, fileName string, r io.Reader, size int64) (*models.Message, error)
	Delete(ctx context.Context, conversationID, messageID string, forEveryone bool) error
	Typing(conversationID string)
	TypingUsers(conversationID string) []string
	StartPrivate(ctx context.Context, userID string) (*models.Conversation, error)
	CreateGroup(ctx context.Context, title string, userIDs []string) (*models.Conversation, error)
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
	OnUpdate(fn func(conversationID string))
}

type chatEvent struct {
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
	TempMessageID  string          `json:"tempMessageId"`
	ConversationID string          `json:"conversationId"`
}

type deletedData struct {
	MessageID          string `json:"messageId"`
	ConversationID     string `json:"conversationId"`
	DeletedForEveryone bool   `json:"deletedForEveryone"`
}

type failedData struct {
	TempMessageID string `json:"tempMessageId"`
	Error         string `json:"error"`
}

type typingData struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	FullName string `json:"fullName"`
	IsTyping bool   `json:"isTyping"`
}

type chatService struct {
	api       ChatAPI
	transport realtime.Transport
	storage   storage.Storage
	session   *session.Session
	notify    Notifier
	cfg       config.Cache
	log       logger.Logger

	typing *chat.TypingSet

	mu            sync.Mutex
	open          map[string]*chat.MessageList
	conversations []models.Conversation
	typingTimers  map[string]*time.Timer
	listeners     []func(string)
}

func NewChatService(chatAPI ChatAPI, transport realtime.Transport, store storage.Storage, sess *session.Session, notify Notifier, cfg config.Cache, log logger.Logger) ChatService {
	return &chatService{
		api:          chatAPI,
		transport:    transport,
		storage:      store,
		session:      sess,
		notify:       notify,
		cfg:          cfg,
		log:          log,
		typing:       chat.NewTypingSet(),
		open:         make(map[string]*chat.MessageList),
		typingTimers: make(map[string]*time.Timer),
	}
}

func (s *chatService) Conversations(ctx context.Context) ([]models.Conversation, error) {
	convs, err := s.api.Conversations(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.conversations = append([]models.Conversation(nil), convs...)
	s.mu.Unlock()
	return convs, nil
}

// Summaries is the last fetched conversation list with previews kept
// current by sends and incoming events.
func (s *chatService) Summaries() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Conversation(nil), s.conversations...)
}

// Open loads the history, subscribes to the conversation topics and joins.
func (s *chatService) Open(ctx context.Context, conversationID string) (*chat.MessageList, error) {
	if conversationID == "" {
		return nil, errors.New("conversation id is required")
	}
	history, err := s.api.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	list, ok := s.open[conversationID]
	if !ok {
		list = chat.NewMessageList()
		s.open[conversationID] = list
	}
	s.mu.Unlock()
	list.Reset(history)

	s.transport.Subscribe(ConversationTopic(conversationID), s.handle(conversationID))
	s.transport.Subscribe(TypingTopic(conversationID), s.handle(conversationID))
	if !s.transport.SendMessage(DestJoin, map[string]string{"conversationId": conversationID}) {
		s.log.Debug("join not sent, transport offline", conversationID)
	}
	return list, nil
}

func (s *chatService) Close(conversationID string) {
	s.transport.Unsubscribe(ConversationTopic(conversationID))
	s.transport.Unsubscribe(TypingTopic(conversationID))

	s.mu.Lock()
	delete(s.open, conversationID)
	if t, ok := s.typingTimers[conversationID]; ok {
		t.Stop()
		delete(s.typingTimers, conversationID)
	}
	s.mu.Unlock()
	s.typing.Clear(conversationID)
}

func (s *chatService) list(conversationID string) (*chat.MessageList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.open[conversationID]
	if !ok {
		return nil, errors.Wrap(ErrConversationClosed, conversationID)
	}
	return list, nil
}

func (s *chatService) sender() models.User {
	if u := s.session.User(); u != nil {
		return *u
	}
	return models.User{ID: s.session.UserID()}
}

// Send shows the message as sending right away. A failed send stays in the
// list as failed; it is not retried.
func (s *chatService) Send(ctx context.Context, conversationID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message is empty")
	}
	return s.send(ctx, conversationID, api.SendMessageRequest{
		ConversationID: conversationID,
		Content:        content,
		Type:           models.MessageText,
	})
}

func (s *chatService) SendFile(ctx context.Context, conversationID, fileName string, r io.Reader, size int64) (*models.Message, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	if _, err := s.list(conversationID); err != nil {
		return nil, err
	}

	objectName, url, err := s.storage.Upload(ctx, s.session.UserID(), fileName, r, size)
	if err != nil {
		s.notify.Error("Could not upload " + fileName)
		return nil, err
	}

	msg, err := s.send(ctx, conversationID, api.SendMessageRequest{
		ConversationID: conversationID,
		Content:        fileName,
		Type:           models.MessageFile,
		FileURL:        url,
		FileName:       fileName,
	})
	if err != nil {
		if derr := s.storage.Delete(ctx, objectName); derr != nil {
			s.log.Warn("removing orphaned upload", objectName, derr)
		}
		return nil, err
	}
	return msg, nil
}

func (s *chatService) send(ctx context.Context, conversationID string, req api.SendMessageRequest) (*models.Message, error) {
	list, err := s.list(conversationID)
	if err != nil {
		return nil, err
	}

	pending := list.AddPending(conversationID, s.sender(), req.Content, req.Type)
	req.TempMessageID = pending.TempID
	s.changed(conversationID)

	msg, err := s.api.SendMessage(ctx, req)
	if err != nil {
		list.MarkFailed(pending.TempID, err.Error())
		s.changed(conversationID)
		s.notify.Error("Message not sent: " + err.Error())
		return nil, err
	}

	if msg.TempID == "" {
		msg.TempID = pending.TempID
	}
	if msg.ID == "" {
		// Confirmation will come over the topic.
		return &pending, nil
	}
	msg.FileURL, msg.FileName = firstNonEmpty(msg.FileURL, req.FileURL), firstNonEmpty(msg.FileName, req.FileName)
	list.Apply(*msg)
	s.summarize(conversationID, *msg)
	s.changed(conversationID)
	return msg, nil
}

// Delete hides the message locally, restoring it if the server refuses.
func (s *chatService) Delete(ctx context.Context, conversationID, messageID string, forEveryone bool) error {
	list, err := s.list(conversationID)
	if err != nil {
		return err
	}
	rollback := list.MarkDeleted(messageID, forEveryone)
	if rollback == nil {
		return errors.Errorf("message %s not found", messageID)
	}
	s.changed(conversationID)

	if err := s.api.DeleteMessage(ctx, messageID, forEveryone); err != nil {
		rollback()
		s.changed(conversationID)
		s.notify.Error("Could not delete the message")
		return err
	}

	if forEveryone {
		s.transport.SendMessage(DestDeleteMessage, map[string]interface{}{
			"messageId":         messageID,
			"conversationId":    conversationID,
			"deleteForEveryone": true,
		})
		s.notify.Success("Deleted for everyone")
	} else {
		s.notify.Success("Deleted for you")
	}
	return nil
}

// Typing publishes a typing indicator and clears it after TypingIdleAfter
// without further calls.
func (s *chatService) Typing(conversationID string) {
	if !s.transport.Connected() {
		return
	}
	s.transport.SendMessage(DestTyping, map[string]interface{}{
		"conversationId": conversationID,
		"isTyping":       true,
	})

	idle := s.cfg.TypingIdleAfter
	if idle <= 0 {
		idle = time.Second
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.typingTimers[conversationID]; ok {
		t.Stop()
	}
	s.typingTimers[conversationID] = time.AfterFunc(idle, func() {
		s.transport.SendMessage(DestTyping, map[string]interface{}{
			"conversationId": conversationID,
			"isTyping":       false,
		})
		s.mu.Lock()
		delete(s.typingTimers, conversationID)
		s.mu.Unlock()
	})
}

func (s *chatService) TypingUsers(conversationID string) []string {
	return s.typing.Typing(conversationID)
}

func (s *chatService) StartPrivate(ctx context.Context, userID string) (*models.Conversation, error) {
	return s.api.CreateConversation(ctx, api.CreateConversationRequest{
		Participants: []string{userID},
		Type:         models.ConversationPrivate,
	})
}

func (s *chatService) CreateGroup(ctx context.Context, title string, userIDs []string) (*models.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, api.CreateConversationRequest{
		Participants: userIDs,
		Type:         models.ConversationGroup,
		Title:        title,
	})
	if err != nil {
		return nil, err
	}
	s.notify.Success("Group " + title + " created")
	return conv, nil
}

func (s *chatService) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return nil, nil
	}
	return s.api.SearchChatUsers(ctx, query)
}

// OnUpdate registers fn to run whenever a conversation's messages or
// typing state change. It runs on the transport's read goroutine.
func (s *chatService) OnUpdate(fn func(conversationID string)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *chatService) changed(conversationID string) {
	s.mu.Lock()
	listeners := append([]func(string){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(conversationID)
	}
}

func (s *chatService) handle(conversationID string) realtime.Callback {
	return func(body json.RawMessage) {
		var ev chatEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			s.log.Warn("decoding chat event", err)
			return
		}
		if ev.ConversationID == "" {
			ev.ConversationID = conversationID
		}
		s.dispatch(ev)
	}
}

func (s *chatService) dispatch(ev chatEvent) {
	s.mu.Lock()
	list := s.open[ev.ConversationID]
	s.mu.Unlock()

	switch ev.Type {
	case EventNewMessage, EventMessageSent:
		var msg models.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			s.log.Warn("decoding chat message", err)
			return
		}
		if msg.TempID == "" {
			msg.TempID = ev.TempMessageID
		}
		if msg.ConversationID == "" {
			msg.ConversationID = ev.ConversationID
		}
		s.summarize(ev.ConversationID, msg)
		if list != nil && list.Apply(msg) {
			s.changed(ev.ConversationID)
		}

	case EventMessageDeleted:
		var d deletedData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		if d.ConversationID == "" {
			d.ConversationID = ev.ConversationID
		}
		s.mu.Lock()
		list = s.open[d.ConversationID]
		for i := range s.conversations {
			if s.conversations[i].ID == d.ConversationID {
				s.conversations[i].LastMessage = deletedSummary
			}
		}
		s.mu.Unlock()
		if list != nil && list.MarkDeleted(d.MessageID, d.DeletedForEveryone) != nil {
			s.changed(d.ConversationID)
		}

	case EventMessageFailed:
		var d failedData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		if list != nil && list.MarkFailed(d.TempMessageID, d.Error) {
			s.changed(ev.ConversationID)
		}
		s.notify.Error("Message not sent: " + d.Error)

	case EventTyping:
		var d typingData
		if err := json.Unmarshal(ev.Data, &d); err != nil {
			return
		}
		if d.UserID == "" || d.UserID == s.session.UserID() {
			return
		}
		s.typing.Set(ev.ConversationID, d.UserID, firstNonEmpty(d.FullName, d.UserName), d.IsTyping)
		s.changed(ev.ConversationID)

	default:
		s.log.Debug("unknown chat event", ev.Type)
	}
}

// summarize updates the conversation list's last message preview.
func (s *chatService) summarize(conversationID string, msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		c := &s.conversations[i]
		if c.ID != conversationID {
			continue
		}
		c.LastMessage = msg.Content
		c.LastMessageAt = msg.CreatedAt
		c.LastSenderName = msg.SenderName
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
