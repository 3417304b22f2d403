package chatv1

import (
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
)

// FromStatus converts a gate status and the room it resolves to.
func FromStatus(st *gate.Status, roomID string) *GateStatus {
	out := &GateStatus{
		UserId:       st.UserID,
		AcademicYear: st.AcademicYear,
		Confirmed:    st.Confirmed,
		Level:        int32(st.Level),
		DefaultLevel: int32(st.DefaultLevel),
		RoomId:       roomID,
	}
	for _, l := range st.Choices {
		out.Choices = append(out.Choices, int32(l))
	}
	return out
}

func FromMessage(m *data.Message) *ChatMessage {
	return &ChatMessage{
		Id:         m.ID,
		Text:       m.Text,
		SenderId:   m.SenderID,
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp,
		IsMentor:   m.IsMentor,
	}
}

// FromSnapshot converts an ordered message list. The result is never nil.
func FromSnapshot(roomID string, msgs []data.Message) *RoomSnapshot {
	out := &RoomSnapshot{RoomId: roomID, Messages: make([]*ChatMessage, 0, len(msgs))}
	for i := range msgs {
		out.Messages = append(out.Messages, FromMessage(&msgs[i]))
	}
	return out
}
