package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("@alice:example.org", "")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = NewUser("alice", "Alice")
	assert.ErrorIs(t, err, ErrUserIDInvalid)

	_, err = NewUser("@bob:s", string(make([]byte, MaxUsernameLen+1)))
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestValidateRoomID(t *testing.T) {
	assert.NoError(t, ValidateRoomID("!r:s"))
	assert.ErrorIs(t, ValidateRoomID("#r:s"), ErrRoomIDInvalid)
	assert.ErrorIs(t, ValidateRoomID("!rs"), ErrRoomIDInvalid)
}

func TestCallStateLive(t *testing.T) {
	for _, s := range []CallState{CallOutgoing, CallIncoming, CallActive} {
		assert.True(t, s.Live(), s.String())
	}
	for _, s := range []CallState{CallEnded, CallFailed} {
		assert.False(t, s.Live(), s.String())
	}
}

func TestCallSessionClone(t *testing.T) {
	s := CallSession{RemoteMedia: &MediaHandle{StreamID: "s", Kinds: []MediaKind{MediaAudio}}}
	c := s.Clone()
	c.RemoteMedia.Kinds[0] = MediaVideo
	assert.Equal(t, MediaAudio, s.RemoteMedia.Kinds[0])
}

func TestInviteEffectiveTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, Invite{}.EffectiveTimeout())
	assert.Equal(t, 5*time.Second, Invite{Timeout: 5 * time.Second}.EffectiveTimeout())
}

func TestCallConfigValidate(t *testing.T) {
	require.NoError(t, DefaultCallConfig().Validate())

	cfg := DefaultCallConfig()
	cfg.ICEServers = nil
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidCallConfig)

	cfg = DefaultCallConfig()
	cfg.BundlePolicy = "max"
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidCallConfig)

	cfg = DefaultCallConfig()
	cfg.InviteTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidCallConfig)
}
