package api

import "io"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TwoFactorRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	FullName string `json:"fullName" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type CommentRequest struct {
	Content         string `json:"content" validate:"required,notblank"`
	ParentCommentID string `json:"parentCommentId,omitempty"`
}

type ReportRequest struct {
	Reason  string `json:"reason" validate:"required,notblank"`
	Details string `json:"details,omitempty"`
}

type ShareRequest struct {
	Content string `json:"content,omitempty"`
}

type UpdatePostRequest struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content" validate:"required,notblank"`
}

// Upload is one file attached to a multipart request.
type Upload struct {
	Name   string
	Reader io.Reader
}

type CreatePostRequest struct {
	Title   string
	Content string
	Files   []Upload
}

type FriendRequest struct {
	AddresseeID string `json:"addresseeId" validate:"required"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Content        string `json:"content" validate:"required_without=FileURL"`
	Type           string `json:"type" validate:"oneof=text file"`
	TempMessageID  string `json:"tempMessageId,omitempty"`
	FileURL        string `json:"fileUrl,omitempty"`
	FileName       string `json:"fileName,omitempty"`
}

type CreateConversationRequest struct {
	Participants []string `json:"participants" validate:"required,min=1,dive,required"`
	Type         string   `json:"type" validate:"oneof=private group"`
	Title        string   `json:"title,omitempty" validate:"required_if=Type group"`
}

type CallRequest struct {
	ConversationID string `json:"conversationId" validate:"required"`
	CallType       string `json:"callType" validate:"oneof=audio video"`
}

type CallActionRequest struct {
	CallID string `json:"callId" validate:"required"`
}

type EventFilter struct {
	Category   string
	Difficulty string
	Search     string
}
