package rtgpserver

import (
	"context"
	"time"

	"github.com/rtype-net/rtgp/internal/wire"
)

// sendTo builds a frame addressed to p, tracks it for retransmit if its
// opcode is reliable, and hands it to the socket. This is the single send
// path every opcode-specific helper below funnels through.
func (s *Server) sendTo(ctx context.Context, p *peer, op wire.OpCode, payload []byte) error {
	seq := p.channel.NextSeq()
	ackID, _ := p.channel.LastReceivedSeqID()
	h := wire.NewHeader(op, wire.ServerUserID, seq, len(payload))
	h.AckID = ackID

	buf := make([]byte, wire.HeaderSize+len(payload))
	h.Encode(buf)
	copy(buf[wire.HeaderSize:], payload)

	if h.IsReliable() {
		p.channel.TrackOutgoing(seq, buf, time.Now())
	}
	if s.cfg.Collector != nil {
		s.cfg.Collector.ObservePacket(wire.Name(op), "out")
	}
	return s.socket.Send(ctx, p.endpoint, buf)
}

// broadcast sends payload to every currently connected peer except skip (if
// skip is nonzero and matches a peer's user id, that peer is omitted — the
// common case of echoing a chat line back to everyone else).
func (s *Server) broadcast(ctx context.Context, op wire.OpCode, payload []byte, skipUserID uint32) {
	for _, p := range s.peers {
		if skipUserID != wire.UnassignedUserID && p.userID == skipUserID {
			continue
		}
		_ = s.sendTo(ctx, p, op, payload)
	}
}

// SendUsersList answers a single peer's C_GET_USERS with the current
// connected-user set.
func (s *Server) SendUsersList(ctx context.Context, userID uint32, users []uint32) error {
	p, ok := s.peers[s.byUserID[userID]]
	if !ok {
		return wire.ErrNotConnected
	}
	return s.sendTo(ctx, p, wire.OpUsersList, wire.UsersListPayload{Users: users}.Encode())
}

// BroadcastUpdateState tells every peer the lobby/match has entered a new
// state.
func (s *Server) BroadcastUpdateState(ctx context.Context, state uint8) {
	s.broadcast(ctx, wire.OpUpdateState, wire.UpdateStatePayload{State: state}.Encode(), wire.UnassignedUserID)
}

// BroadcastGameOver announces the match's final score to every peer.
func (s *Server) BroadcastGameOver(ctx context.Context, finalScore uint32) {
	s.broadcast(ctx, wire.OpGameOver, wire.GameOverPayload{FinalScore: finalScore}.Encode(), wire.UnassignedUserID)
}

// BroadcastGameStart announces the countdown before play begins to every
// peer; a countdownSeconds of 0 cancels a countdown already in progress.
func (s *Server) BroadcastGameStart(ctx context.Context, countdownSeconds float32) {
	s.broadcast(ctx, wire.OpGameStart, wire.GameStartPayload{CountdownSeconds: countdownSeconds}.Encode(), wire.UnassignedUserID)
}

// BroadcastPlayerReadyState tells every peer, userID's own included, that
// userID's readiness changed.
func (s *Server) BroadcastPlayerReadyState(ctx context.Context, userID uint32, ready bool) {
	payload := wire.PlayerReadyStatePayload{UserID: userID, Ready: ready}.Encode()
	s.broadcast(ctx, wire.OpPlayerReadyState, payload, wire.UnassignedUserID)
}

// SendLobbyList answers a single peer's C_REQUEST_LOBBIES.
func (s *Server) SendLobbyList(ctx context.Context, userID uint32, lobbies []wire.LobbyEntry) error {
	p, ok := s.peers[s.byUserID[userID]]
	if !ok {
		return wire.ErrNotConnected
	}
	return s.sendTo(ctx, p, wire.OpLobbyList, wire.LobbyListPayload{Lobbies: lobbies}.Encode())
}

// SendJoinLobbyResponse answers a single peer's C_JOIN_LOBBY.
func (s *Server) SendJoinLobbyResponse(ctx context.Context, userID uint32, resp wire.JoinLobbyResponsePayload) error {
	p, ok := s.peers[s.byUserID[userID]]
	if !ok {
		return wire.ErrNotConnected
	}
	return s.sendTo(ctx, p, wire.OpJoinLobbyResponse, resp.Encode())
}

// BroadcastEntitySpawn announces a new entity to every peer.
func (s *Server) BroadcastEntitySpawn(ctx context.Context, p wire.EntitySpawnPayload) {
	s.broadcast(ctx, wire.OpEntitySpawn, p.Encode(), wire.UnassignedUserID)
}

// BroadcastEntityMove sends one entity's unreliable position/velocity
// update to every peer.
func (s *Server) BroadcastEntityMove(ctx context.Context, p wire.EntityMovePayload) {
	s.broadcast(ctx, wire.OpEntityMove, p.Encode(), wire.UnassignedUserID)
}

// BroadcastEntityDestroy announces an entity's removal to every peer.
func (s *Server) BroadcastEntityDestroy(ctx context.Context, entityID uint32) {
	s.broadcast(ctx, wire.OpEntityDestroy, wire.EntityDestroyPayload{EntityID: entityID}.Encode(), wire.UnassignedUserID)
}

// BroadcastEntityHealth announces an entity's current/max health to every
// peer.
func (s *Server) BroadcastEntityHealth(ctx context.Context, p wire.EntityHealthPayload) {
	s.broadcast(ctx, wire.OpEntityHealth, p.Encode(), wire.UnassignedUserID)
}

// BroadcastPowerupEvent announces a powerup pickup to every peer.
func (s *Server) BroadcastPowerupEvent(ctx context.Context, p wire.PowerupEventPayload) {
	s.broadcast(ctx, wire.OpPowerupEvent, p.Encode(), wire.UnassignedUserID)
}

// BroadcastEntityMoveBatch sends this tick's movement for every entry in
// entries, chunked at wire.EntityMoveBatchMaxEntries per frame so a large
// entity count never exceeds the wire cap.
func (s *Server) BroadcastEntityMoveBatch(ctx context.Context, entries []wire.MoveBatchEntry) {
	for len(entries) > 0 {
		n := len(entries)
		if n > wire.EntityMoveBatchMaxEntries {
			n = wire.EntityMoveBatchMaxEntries
		}
		chunk := entries[:n]
		entries = entries[n:]
		s.broadcast(ctx, wire.OpEntityMoveBatch, wire.EntityMoveBatchPayload{Entries: chunk}.Encode(), wire.UnassignedUserID)
	}
}

// BroadcastBandwidthChanged acknowledges a bandwidth mode change to every
// peer (the new mode applies batch-wide, so every client needs to know the
// new tick interval even though only one client requested it).
func (s *Server) BroadcastBandwidthChanged(ctx context.Context, p wire.BandwidthChangedPayload) {
	s.broadcast(ctx, wire.OpBandwidthChanged, p.Encode(), wire.UnassignedUserID)
}

// BroadcastLevelAnnounce announces the level every peer should load before
// the match starts.
func (s *Server) BroadcastLevelAnnounce(ctx context.Context, p wire.LevelAnnouncePayload) {
	s.broadcast(ctx, wire.OpLevelAnnounce, p.Encode(), wire.UnassignedUserID)
}

// BroadcastChat relays a chat message to every peer except the sender.
func (s *Server) BroadcastChat(ctx context.Context, senderUserID uint32, message string) {
	payload := wire.NewChatPayload(senderUserID, message).Encode()
	s.broadcast(ctx, wire.OpServerChat, payload, senderUserID)
}

// SendPong answers a single peer's PING.
func (s *Server) SendPong(ctx context.Context, userID uint32) error {
	p, ok := s.peers[s.byUserID[userID]]
	if !ok {
		return wire.ErrNotConnected
	}
	return s.sendTo(ctx, p, wire.OpPong, nil)
}
