package chatv1

import (
	"strings"
	"testing"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/data"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/emptypb"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(Codec)
	if c == nil {
		t.Fatalf("codec %q not registered", Codec)
	}

	b, err := c.Marshal(&emptypb.Empty{})
	if err != nil || string(b) != "{}" {
		t.Fatalf("empty: %q, %v", b, err)
	}

	b, err = c.Marshal(&ChatMessage{Id: "m1", Text: "hi", SenderId: "u1", Timestamp: 50, IsMentor: true})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for _, key := range []string{`"id":"m1"`, `"senderId":"u1"`, `"timestamp":50`, `"isMentor":true`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("missing %s in %s", key, b)
		}
	}

	var got ChatMessage
	if err := c.Unmarshal(b, &got); err != nil || got.Id != "m1" || got.Timestamp != 50 {
		t.Fatalf("Unmarshal: %+v, %v", got, err)
	}
}

func TestFromStatusAndSnapshot(t *testing.T) {
	st := &gate.Status{
		UserID:       "u1",
		AcademicYear: "2024",
		Level:        academic.LevelTwo,
		DefaultLevel: academic.LevelTwo,
		Choices:      academic.Levels,
	}
	out := FromStatus(st, "GI_year2")
	if out.RoomId != "GI_year2" || out.Level != 2 || len(out.Choices) != 2 || out.Confirmed {
		t.Fatalf("unexpected status: %+v", out)
	}

	snap := FromSnapshot("r", nil)
	if snap.Messages == nil || len(snap.Messages) != 0 {
		t.Fatalf("empty snapshot must carry an empty list")
	}
	snap = FromSnapshot("r", []data.Message{{ID: "a", Timestamp: 50}, {ID: "b", Timestamp: 100}})
	if snap.Messages[0].Id != "a" || snap.Messages[1].Timestamp != 100 {
		t.Fatalf("order not kept: %+v", snap.Messages)
	}
}
