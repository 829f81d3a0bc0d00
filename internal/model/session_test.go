package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to SessionStatus
	}{
		{SessionStatusScheduled, SessionStatusInProgress},
		{SessionStatusScheduled, SessionStatusCancelled},
		{SessionStatusInProgress, SessionStatusCompleted},
		{SessionStatusInProgress, SessionStatusCancelled},
		{SessionStatusInProgress, SessionStatusDisconnected},
		{SessionStatusDisconnected, SessionStatusCompleted},
		{SessionStatusDisconnected, SessionStatusCancelled},
	}

	for _, tc := range allowed {
		t.Run(string(tc.from)+" to "+string(tc.to), func(t *testing.T) {
			assert.True(t, CanTransition(tc.from, tc.to))
		})
	}

	rejected := []struct {
		from, to SessionStatus
	}{
		{SessionStatusScheduled, SessionStatusCompleted},
		{SessionStatusScheduled, SessionStatusNoShow},
		{SessionStatusCompleted, SessionStatusCancelled},
		{SessionStatusCompleted, SessionStatusCompleted},
		{SessionStatusCancelled, SessionStatusInProgress},
		{SessionStatusNoShow, SessionStatusInProgress},
		{SessionStatusDisconnected, SessionStatusInProgress},
	}

	for _, tc := range rejected {
		t.Run(string(tc.from)+" to "+string(tc.to)+" rejected", func(t *testing.T) {
			assert.False(t, CanTransition(tc.from, tc.to))
		})
	}
}

func TestSessionParticipants(t *testing.T) {
	s := &Session{ClientID: "client-1", ReaderID: "reader-1"}

	assert.True(t, s.HasParticipant("client-1"))
	assert.True(t, s.HasParticipant("reader-1"))
	assert.False(t, s.HasParticipant("stranger"))

	assert.Equal(t, "reader-1", s.PeerOf("client-1"))
	assert.Equal(t, "client-1", s.PeerOf("reader-1"))
	assert.Equal(t, "", s.PeerOf("stranger"))
}
