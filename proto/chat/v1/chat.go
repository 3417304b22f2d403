// Package chatv1 is the wire contract of the chat.v1.RoomService gRPC API.
// Messages are plain Go structs carried with the "json" codec.
package chatv1

import (
	"google.golang.org/protobuf/types/known/timestamppb"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	Filiere     string `json:"filiere"`
	StartYear   int32  `json:"startYear,omitempty"`
}

func (x *RegisterRequest) GetEmail() string {
	if x == nil {
		return ""
	}
	return x.Email
}

func (x *RegisterRequest) GetPassword() string {
	if x == nil {
		return ""
	}
	return x.Password
}

type RegisterResponse struct {
	Token     string                 `json:"token"`
	UserId    string                 `json:"userId"`
	ExpiresAt *timestamppb.Timestamp `json:"expiresAt,omitempty"`
}

func (x *RegisterResponse) GetToken() string {
	if x == nil {
		return ""
	}
	return x.Token
}

func (x *RegisterResponse) GetUserId() string {
	if x == nil {
		return ""
	}
	return x.UserId
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (x *LoginRequest) GetEmail() string {
	if x == nil {
		return ""
	}
	return x.Email
}

func (x *LoginRequest) GetPassword() string {
	if x == nil {
		return ""
	}
	return x.Password
}

type LoginResponse struct {
	Token     string                 `json:"token"`
	UserId    string                 `json:"userId"`
	ExpiresAt *timestamppb.Timestamp `json:"expiresAt,omitempty"`
}

func (x *LoginResponse) GetToken() string {
	if x == nil {
		return ""
	}
	return x.Token
}

func (x *LoginResponse) GetUserId() string {
	if x == nil {
		return ""
	}
	return x.UserId
}

// GateStatus tells a client whether it must ask for a cohort level before
// joining, and which room it would join.
type GateStatus struct {
	UserId       string  `json:"userId"`
	AcademicYear string  `json:"academicYear"`
	Confirmed    bool    `json:"confirmed"`
	Level        int32   `json:"level"`
	DefaultLevel int32   `json:"defaultLevel"`
	Choices      []int32 `json:"choices,omitempty"`
	RoomId       string  `json:"roomId"`
}

func (x *GateStatus) GetConfirmed() bool {
	return x != nil && x.Confirmed
}

func (x *GateStatus) GetRoomId() string {
	if x == nil {
		return ""
	}
	return x.RoomId
}

type ConfirmLevelRequest struct {
	Level int32 `json:"level"`
}

func (x *ConfirmLevelRequest) GetLevel() int32 {
	if x == nil {
		return 0
	}
	return x.Level
}

type ChatMessage struct {
	Id         string `json:"id"`
	Text       string `json:"text"`
	SenderId   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Timestamp  int64  `json:"timestamp"`
	IsMentor   bool   `json:"isMentor"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

func (x *SendMessageRequest) GetText() string {
	if x == nil {
		return ""
	}
	return x.Text
}

type SendMessageResponse struct {
	Message *ChatMessage `json:"message"`
}

func (x *SendMessageResponse) GetMessage() *ChatMessage {
	if x == nil {
		return nil
	}
	return x.Message
}

type JoinRoomRequest struct{}

// RoomSnapshot is the full ordered message list of a room at one point.
type RoomSnapshot struct {
	RoomId   string         `json:"roomId"`
	Messages []*ChatMessage `json:"messages"`
}

func (x *RoomSnapshot) GetRoomId() string {
	if x == nil {
		return ""
	}
	return x.RoomId
}

func (x *RoomSnapshot) GetMessages() []*ChatMessage {
	if x == nil {
		return nil
	}
	return x.Messages
}
