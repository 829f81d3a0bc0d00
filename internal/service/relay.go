package service

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	apperrors "github.com/kylasweb/soulseer-session-server/internal/errors"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

var validSignalTypes = map[string]bool{
	"offer":         true,
	"answer":        true,
	"ice-candidate": true,
}

type SignalParams struct {
	SessionID  string
	SenderID   string
	SignalType string
	// Payload is opaque SDP or ICE data; the relay never inspects it.
	Payload json.RawMessage
}

// RelayService forwards WebRTC signaling between the two participants of
// a session. It is a pure relay: payloads pass through untouched, and a
// signal to an offline peer is dropped rather than queued, since stale
// SDP offers are useless by the time the peer returns.
type RelayService struct {
	sessionRepo repository.SessionRepository
	presence    Presence
}

func NewRelayService(sessionRepo repository.SessionRepository, presence Presence) *RelayService {
	return &RelayService{sessionRepo: sessionRepo, presence: presence}
}

// Signal validates the sender's membership in the session and forwards
// the payload to the peer. Returns whether the peer received it.
func (s *RelayService) Signal(ctx context.Context, params SignalParams) (bool, error) {
	if !validSignalTypes[params.SignalType] {
		return false, apperrors.InvalidInput("signalType", "must be offer, answer or ice-candidate")
	}

	session, err := s.sessionRepo.FindByID(ctx, params.SessionID)
	if err != nil {
		return false, apperrors.Database(err)
	}
	if session == nil {
		return false, apperrors.NotFound("Session")
	}
	if !session.HasParticipant(params.SenderID) {
		return false, apperrors.AccessDenied("Not a participant of this session")
	}

	data, err := json.Marshal(map[string]any{
		"sessionId":  params.SessionID,
		"senderId":   params.SenderID,
		"signalType": params.SignalType,
		"payload":    params.Payload,
	})
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to encode signal", err)
	}

	delivered := s.presence.SendToUser(session.PeerOf(params.SenderID), ws.Event{
		Type: "signal",
		Data: data,
	})
	if !delivered {
		log.Debug().
			Str("sessionId", params.SessionID).
			Str("signalType", params.SignalType).
			Msg("signal dropped, peer offline")
	}
	return delivered, nil
}
