package core

import (
	"errors"
	"testing"

	"github.com/dkeye/voicecall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	frames []Frame
	full   bool
}

func (c *recordingConn) TrySend(f Frame) error {
	if c.full {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *recordingConn) Close() {}

func newMember(t *testing.T, id domain.UserID, sc SignalConnection) MemberSession {
	t.Helper()
	u, err := domain.NewUser(id, "")
	require.NoError(t, err)
	return NewMemberSession(domain.NewMember(u)).UpdateSignal(sc)
}

func TestRoomBroadcastSkipsSender(t *testing.T) {
	room := NewRoomService(&domain.Room{ID: "!r:s"})
	a, b, c := &recordingConn{}, &recordingConn{}, &recordingConn{full: true}
	room.AddMember("sa", newMember(t, "@a:s", a))
	room.AddMember("sb", newMember(t, "@b:s", b))
	room.AddMember("sc", newMember(t, "@c:s", c))

	res := room.Broadcast("sa", Frame("hello"))

	assert.Equal(t, 1, res.SendTo)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, domain.UserID("@c:s"), res.Dropped[0].Meta().User.ID)
	assert.Empty(t, a.frames)
	assert.Equal(t, []Frame{Frame("hello")}, b.frames)
}

func TestRoomMembership(t *testing.T) {
	room := NewRoomService(&domain.Room{ID: "!r:s"})
	room.AddMember("sa", newMember(t, "@a:s", &recordingConn{}))
	assert.True(t, room.HasMember("sa"))
	assert.Equal(t, 1, room.MemberCount())
	assert.Equal(t, []MemberDTO{{ID: "@a:s", Username: "a"}}, room.MembersSnapshot())

	room.RemoveMember("sa")
	assert.False(t, room.HasMember("sa"))
	assert.Zero(t, room.MemberCount())
}
