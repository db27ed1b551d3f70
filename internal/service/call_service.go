package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"edusocial/internal/api"
	"edusocial/internal/logger"
	"edusocial/internal/models"
	"edusocial/internal/realtime"
)

const (
	DestCallInitiate = "/call.initiate"
	DestCallAnswer   = "/call.answer"
	DestCallEnd      = "/call.end"

	// IncomingCallTopic delivers call offers addressed to the current user.
	IncomingCallTopic = "/user/queue/calls"
)

type CallService interface {
	Initiate(ctx context.Context, conversationID, callType string) (*models.Call, error)
	Answer(ctx context.Context) (*models.Call, error)
	Reject(ctx context.Context) error
	End(ctx context.Context) error
	Current() *models.Call
	Incoming() *models.Call
	Watch(onIncoming func(models.Call))
}

type callService struct {
	api       CallAPI
	transport realtime.Transport
	notify    Notifier
	log       logger.Logger

	mu       sync.Mutex
	current  *models.Call
	incoming *models.Call
}

func NewCallService(callAPI CallAPI, transport realtime.Transport, notify Notifier, log logger.Logger) CallService {
	return &callService{
		api:       callAPI,
		transport: transport,
		notify:    notify,
		log:       log,
	}
}

func (s *callService) Initiate(ctx context.Context, conversationID, callType string) (*models.Call, error) {
	if callType == "" {
		callType = models.CallAudio
	}
	call, err := s.api.InitiateCall(ctx, api.CallRequest{ConversationID: conversationID, CallType: callType})
	if err != nil {
		s.notify.Error("Could not start the call")
		return nil, err
	}
	if call.ConversationID == "" {
		call.ConversationID = conversationID
	}

	s.mu.Lock()
	s.current = call
	s.mu.Unlock()

	s.transport.SendMessage(DestCallInitiate, map[string]string{
		"conversationId": conversationID,
		"type":           callType,
		"callId":         call.ID,
	})
	s.notify.Info("Calling...")
	return call, nil
}

func (s *callService) Answer(ctx context.Context) (*models.Call, error) {
	s.mu.Lock()
	call := s.incoming
	s.mu.Unlock()
	if call == nil {
		return nil, ErrNoActiveCall
	}

	if err := s.api.AnswerCall(ctx, call.ID); err != nil {
		s.notify.Error("Could not answer the call")
		return nil, err
	}

	s.mu.Lock()
	s.current, s.incoming = call, nil
	s.mu.Unlock()

	s.transport.SendMessage(DestCallAnswer, map[string]string{"callId": call.ID})
	return call, nil
}

func (s *callService) Reject(ctx context.Context) error {
	s.mu.Lock()
	call := s.incoming
	s.mu.Unlock()
	if call == nil {
		return ErrNoActiveCall
	}
	if err := s.api.RejectCall(ctx, call.ID); err != nil {
		return err
	}
	s.mu.Lock()
	s.incoming = nil
	s.mu.Unlock()
	return nil
}

func (s *callService) End(ctx context.Context) error {
	s.mu.Lock()
	call := s.current
	s.mu.Unlock()
	if call == nil {
		return ErrNoActiveCall
	}
	if err := s.api.EndCall(ctx, call.ID); err != nil {
		return errors.Wrap(err, "ending call")
	}

	s.transport.SendMessage(DestCallEnd, map[string]string{"callId": call.ID})

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return nil
}

func (s *callService) Current() *models.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *callService) Incoming() *models.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.incoming
}

// Watch subscribes to call offers. Offers made while another call is
// active are ignored.
func (s *callService) Watch(onIncoming func(models.Call)) {
	s.transport.Subscribe(IncomingCallTopic, func(body json.RawMessage) {
		var call models.Call
		if err := json.Unmarshal(body, &call); err != nil || call.ID == "" {
			s.log.Warn("decoding incoming call", err)
			return
		}

		s.mu.Lock()
		busy := s.current != nil
		if !busy {
			s.incoming = &call
		}
		s.mu.Unlock()
		if busy {
			return
		}
		if onIncoming != nil {
			onIncoming(call)
		}
	})
}
