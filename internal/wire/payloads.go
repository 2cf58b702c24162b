package wire

// This file implements Encode/Decode for every opcode payload named in the
// wire table (Section 6.1). Fixed-size payloads expose Encode() []byte and
// Decode(data []byte) (T, error); the three variable-length payloads
// (R_GET_USERS, S_LOBBY_LIST, S_ENTITY_MOVE_BATCH) expose a count-prefixed
// encode and a decode that returns the full entry slice, matching Section
// 4.1's "header decode plus entry iterator" requirement — the entries are
// cheap to materialize fully at these caps (50-255 entries) so the
// "iterator" is a plain slice rather than a lazy cursor type.

// ConnectPayload carries no fields; C_CONNECT's payload is empty.
type ConnectPayload struct{}

func (ConnectPayload) Encode() []byte { return nil }

func DecodeConnectPayload(data []byte) (ConnectPayload, error) {
	if len(data) != 0 {
		return ConnectPayload{}, ErrMalformedPacket
	}
	return ConnectPayload{}, nil
}

// AcceptPayload is S_ACCEPT's payload: the user id assigned to the new peer.
type AcceptPayload struct {
	AssignedUserID uint32
}

func (p AcceptPayload) Encode() []byte {
	w := newWriter(4)
	w.u32(p.AssignedUserID)
	return w.buf
}

func DecodeAcceptPayload(data []byte) (AcceptPayload, error) {
	r := newReader(data)
	id, ok := r.u32()
	if !ok || r.remaining() != 0 {
		return AcceptPayload{}, ErrMalformedPacket
	}
	return AcceptPayload{AssignedUserID: id}, nil
}

// DisconnectPayload carries the reason the connection is ending.
type DisconnectPayload struct {
	Reason DisconnectReason
}

func (p DisconnectPayload) Encode() []byte {
	return []byte{byte(p.Reason)}
}

func DecodeDisconnectPayload(data []byte) (DisconnectPayload, error) {
	r := newReader(data)
	v, ok := r.u8()
	if !ok || r.remaining() != 0 {
		return DisconnectPayload{}, ErrMalformedPacket
	}
	return DisconnectPayload{Reason: DisconnectReason(v)}, nil
}

// UsersListPayload is R_GET_USERS: a count-prefixed list of connected user ids.
type UsersListPayload struct {
	Users []uint32
}

func (p UsersListPayload) Encode() []byte {
	n := len(p.Users)
	if n > usersListMaxCount {
		n = usersListMaxCount
	}
	w := newWriter(1 + n*usersListEntrySize)
	w.u8(uint8(n))
	for _, u := range p.Users[:n] {
		w.u32(u)
	}
	return w.buf
}

func DecodeUsersListPayload(data []byte) (UsersListPayload, error) {
	r := newReader(data)
	count, ok := r.u8()
	if !ok {
		return UsersListPayload{}, ErrMalformedPacket
	}
	if int(count) > usersListMaxCount {
		return UsersListPayload{}, ErrMalformedPacket
	}
	if r.remaining() != int(count)*usersListEntrySize {
		return UsersListPayload{}, ErrMalformedPacket
	}
	users := make([]uint32, count)
	for i := range users {
		v, _ := r.u32()
		users[i] = v
	}
	return UsersListPayload{Users: users}, nil
}

// UpdateStatePayload is S_UPDATE_STATE: the new lobby/match state.
type UpdateStatePayload struct {
	State uint8
}

func (p UpdateStatePayload) Encode() []byte { return []byte{p.State} }

func DecodeUpdateStatePayload(data []byte) (UpdateStatePayload, error) {
	r := newReader(data)
	v, ok := r.u8()
	if !ok || r.remaining() != 0 {
		return UpdateStatePayload{}, ErrMalformedPacket
	}
	return UpdateStatePayload{State: v}, nil
}

// GameOverPayload is S_GAME_OVER: the match's final score.
type GameOverPayload struct {
	FinalScore uint32
}

func (p GameOverPayload) Encode() []byte {
	w := newWriter(4)
	w.u32(p.FinalScore)
	return w.buf
}

func DecodeGameOverPayload(data []byte) (GameOverPayload, error) {
	r := newReader(data)
	v, ok := r.u32()
	if !ok || r.remaining() != 0 {
		return GameOverPayload{}, ErrMalformedPacket
	}
	return GameOverPayload{FinalScore: v}, nil
}

// ReadyPayload is C_READY: whether the local player is ready.
type ReadyPayload struct {
	Ready bool
}

func (p ReadyPayload) Encode() []byte {
	if p.Ready {
		return []byte{1}
	}
	return []byte{0}
}

func DecodeReadyPayload(data []byte) (ReadyPayload, error) {
	r := newReader(data)
	v, ok := r.u8()
	if !ok || r.remaining() != 0 {
		return ReadyPayload{}, ErrMalformedPacket
	}
	return ReadyPayload{Ready: v != 0}, nil
}

// GameStartPayload is S_GAME_START: the countdown before play begins, in
// seconds; 0 cancels a countdown already in progress.
type GameStartPayload struct {
	CountdownSeconds float32
}

func (p GameStartPayload) Encode() []byte {
	w := newWriter(4)
	w.f32(p.CountdownSeconds)
	return w.buf
}

func DecodeGameStartPayload(data []byte) (GameStartPayload, error) {
	r := newReader(data)
	v, ok := r.f32()
	if !ok || r.remaining() != 0 {
		return GameStartPayload{}, ErrMalformedPacket
	}
	return GameStartPayload{CountdownSeconds: v}, nil
}

// PlayerReadyStatePayload is S_PLAYER_READY_STATE: one peer's readiness, as
// broadcast to the rest of the lobby.
type PlayerReadyStatePayload struct {
	UserID uint32
	Ready  bool
}

func (p PlayerReadyStatePayload) Encode() []byte {
	w := newWriter(5)
	w.u32(p.UserID)
	if p.Ready {
		w.u8(1)
	} else {
		w.u8(0)
	}
	return w.buf
}

func DecodePlayerReadyStatePayload(data []byte) (PlayerReadyStatePayload, error) {
	r := newReader(data)
	id, ok := r.u32()
	if !ok {
		return PlayerReadyStatePayload{}, ErrMalformedPacket
	}
	ready, ok := r.u8()
	if !ok || r.remaining() != 0 {
		return PlayerReadyStatePayload{}, ErrMalformedPacket
	}
	return PlayerReadyStatePayload{UserID: id, Ready: ready != 0}, nil
}

// LobbyEntry is one record within S_LOBBY_LIST.
type LobbyEntry struct {
	Code      [6]byte
	Port      uint16
	Players   uint8
	MaxPlayers uint8
	Active    uint8
	LevelName [16]byte
}

// LobbyListPayload is S_LOBBY_LIST: a count-prefixed list of open lobbies.
type LobbyListPayload struct {
	Lobbies []LobbyEntry
}

func (p LobbyListPayload) Encode() []byte {
	n := len(p.Lobbies)
	if n > lobbyListMaxCount {
		n = lobbyListMaxCount
	}
	w := newWriter(1 + n*lobbyListEntrySize)
	w.u8(uint8(n))
	for _, e := range p.Lobbies[:n] {
		w.raw(e.Code[:])
		w.u16(e.Port)
		w.u8(e.Players)
		w.u8(e.MaxPlayers)
		w.u8(e.Active)
		w.raw(e.LevelName[:])
	}
	return w.buf
}

func DecodeLobbyListPayload(data []byte) (LobbyListPayload, error) {
	r := newReader(data)
	count, ok := r.u8()
	if !ok {
		return LobbyListPayload{}, ErrMalformedPacket
	}
	if int(count) > lobbyListMaxCount {
		return LobbyListPayload{}, ErrMalformedPacket
	}
	if r.remaining() != int(count)*lobbyListEntrySize {
		return LobbyListPayload{}, ErrMalformedPacket
	}
	lobbies := make([]LobbyEntry, count)
	for i := range lobbies {
		var e LobbyEntry
		code, _ := r.bytes(6)
		copy(e.Code[:], code)
		e.Port, _ = r.u16()
		e.Players, _ = r.u8()
		e.MaxPlayers, _ = r.u8()
		e.Active, _ = r.u8()
		name, _ := r.bytes(16)
		copy(e.LevelName[:], name)
		lobbies[i] = e
	}
	return LobbyListPayload{Lobbies: lobbies}, nil
}

// JoinLobbyPayload is C_JOIN_LOBBY: the lobby code the client wants to join.
type JoinLobbyPayload struct {
	Code [6]byte
}

func (p JoinLobbyPayload) Encode() []byte {
	w := newWriter(6)
	w.raw(p.Code[:])
	return w.buf
}

func DecodeJoinLobbyPayload(data []byte) (JoinLobbyPayload, error) {
	r := newReader(data)
	code, ok := r.bytes(6)
	if !ok || r.remaining() != 0 {
		return JoinLobbyPayload{}, ErrMalformedPacket
	}
	var p JoinLobbyPayload
	copy(p.Code[:], code)
	return p, nil
}

// JoinLobbyResponsePayload is S_JOIN_LOBBY_RESPONSE: whether the join
// succeeded, and the level name the lobby has loaded (or will load).
type JoinLobbyResponsePayload struct {
	Success   bool
	Reason    uint8
	LevelName [16]byte
}

func (p JoinLobbyResponsePayload) Encode() []byte {
	w := newWriter(18)
	if p.Success {
		w.u8(1)
	} else {
		w.u8(0)
	}
	w.u8(p.Reason)
	w.raw(p.LevelName[:])
	return w.buf
}

func DecodeJoinLobbyResponsePayload(data []byte) (JoinLobbyResponsePayload, error) {
	r := newReader(data)
	success, ok := r.u8()
	if !ok {
		return JoinLobbyResponsePayload{}, ErrMalformedPacket
	}
	reason, ok := r.u8()
	if !ok {
		return JoinLobbyResponsePayload{}, ErrMalformedPacket
	}
	name, ok := r.bytes(16)
	if !ok || r.remaining() != 0 {
		return JoinLobbyResponsePayload{}, ErrMalformedPacket
	}
	var p JoinLobbyResponsePayload
	p.Success = success != 0
	p.Reason = reason
	copy(p.LevelName[:], name)
	return p, nil
}

// EntitySpawnPayload is S_ENTITY_SPAWN.
type EntitySpawnPayload struct {
	EntityID   uint32
	EntityType uint8
	OwnerSlot  uint8
	X          float32
	Y          float32
}

func (p EntitySpawnPayload) Encode() []byte {
	w := newWriter(14)
	w.u32(p.EntityID)
	w.u8(p.EntityType)
	w.u8(p.OwnerSlot)
	w.f32(p.X)
	w.f32(p.Y)
	return w.buf
}

func DecodeEntitySpawnPayload(data []byte) (EntitySpawnPayload, error) {
	r := newReader(data)
	var p EntitySpawnPayload
	var ok bool
	if p.EntityID, ok = r.u32(); !ok {
		return EntitySpawnPayload{}, ErrMalformedPacket
	}
	if p.EntityType, ok = r.u8(); !ok {
		return EntitySpawnPayload{}, ErrMalformedPacket
	}
	if p.OwnerSlot, ok = r.u8(); !ok {
		return EntitySpawnPayload{}, ErrMalformedPacket
	}
	if p.X, ok = r.f32(); !ok {
		return EntitySpawnPayload{}, ErrMalformedPacket
	}
	if p.Y, ok = r.f32(); !ok || r.remaining() != 0 {
		return EntitySpawnPayload{}, ErrMalformedPacket
	}
	return p, nil
}

// EntityMovePayload is S_ENTITY_MOVE, unreliable: position plus quantized
// velocity (PositionScale, below, is the fixed-point scale applied).
type EntityMovePayload struct {
	EntityID uint32
	X        float32
	Y        float32
	VX       int16
	VY       int16
}

// PositionScale is the fixed-point scale used to quantize velocity
// components in S_ENTITY_MOVE / S_ENTITY_MOVE_BATCH (units per world unit).
const PositionScale float32 = 100.0

func (p EntityMovePayload) Encode() []byte {
	w := newWriter(16)
	w.u32(p.EntityID)
	w.f32(p.X)
	w.f32(p.Y)
	w.i16(p.VX)
	w.i16(p.VY)
	return w.buf
}

func DecodeEntityMovePayload(data []byte) (EntityMovePayload, error) {
	r := newReader(data)
	var p EntityMovePayload
	var ok bool
	if p.EntityID, ok = r.u32(); !ok {
		return EntityMovePayload{}, ErrMalformedPacket
	}
	if p.X, ok = r.f32(); !ok {
		return EntityMovePayload{}, ErrMalformedPacket
	}
	if p.Y, ok = r.f32(); !ok {
		return EntityMovePayload{}, ErrMalformedPacket
	}
	if p.VX, ok = r.i16(); !ok {
		return EntityMovePayload{}, ErrMalformedPacket
	}
	if p.VY, ok = r.i16(); !ok || r.remaining() != 0 {
		return EntityMovePayload{}, ErrMalformedPacket
	}
	return p, nil
}

// EntityDestroyPayload is S_ENTITY_DESTROY.
type EntityDestroyPayload struct {
	EntityID uint32
}

func (p EntityDestroyPayload) Encode() []byte {
	w := newWriter(4)
	w.u32(p.EntityID)
	return w.buf
}

func DecodeEntityDestroyPayload(data []byte) (EntityDestroyPayload, error) {
	r := newReader(data)
	v, ok := r.u32()
	if !ok || r.remaining() != 0 {
		return EntityDestroyPayload{}, ErrMalformedPacket
	}
	return EntityDestroyPayload{EntityID: v}, nil
}

// EntityHealthPayload is S_ENTITY_HEALTH.
type EntityHealthPayload struct {
	EntityID uint32
	Current  int32
	Max      int32
}

func (p EntityHealthPayload) Encode() []byte {
	w := newWriter(12)
	w.u32(p.EntityID)
	w.i32(p.Current)
	w.i32(p.Max)
	return w.buf
}

func DecodeEntityHealthPayload(data []byte) (EntityHealthPayload, error) {
	r := newReader(data)
	var p EntityHealthPayload
	var ok bool
	if p.EntityID, ok = r.u32(); !ok {
		return EntityHealthPayload{}, ErrMalformedPacket
	}
	if p.Current, ok = r.i32(); !ok {
		return EntityHealthPayload{}, ErrMalformedPacket
	}
	if p.Max, ok = r.i32(); !ok || r.remaining() != 0 {
		return EntityHealthPayload{}, ErrMalformedPacket
	}
	return p, nil
}

// PowerupEventPayload is S_POWERUP_EVENT.
type PowerupEventPayload struct {
	PlayerID    uint32
	PowerupType uint8
	Duration    float32
}

func (p PowerupEventPayload) Encode() []byte {
	w := newWriter(9)
	w.u32(p.PlayerID)
	w.u8(p.PowerupType)
	w.f32(p.Duration)
	return w.buf
}

func DecodePowerupEventPayload(data []byte) (PowerupEventPayload, error) {
	r := newReader(data)
	var p PowerupEventPayload
	var ok bool
	if p.PlayerID, ok = r.u32(); !ok {
		return PowerupEventPayload{}, ErrMalformedPacket
	}
	if p.PowerupType, ok = r.u8(); !ok {
		return PowerupEventPayload{}, ErrMalformedPacket
	}
	if p.Duration, ok = r.f32(); !ok || r.remaining() != 0 {
		return PowerupEventPayload{}, ErrMalformedPacket
	}
	return p, nil
}

// MoveBatchEntry is one entity's movement update within S_ENTITY_MOVE_BATCH.
type MoveBatchEntry struct {
	EntityID uint32
	X        int16
	Y        int16
	VX       int16
	VY       int16
}

// EntityMoveBatchPayload is S_ENTITY_MOVE_BATCH, unreliable: a tick's worth
// of quantized entity movement, capped at moveBatchMaxCount entries.
type EntityMoveBatchPayload struct {
	Entries []MoveBatchEntry
}

func (p EntityMoveBatchPayload) Encode() []byte {
	n := len(p.Entries)
	if n > moveBatchMaxCount {
		n = moveBatchMaxCount
	}
	w := newWriter(1 + n*moveBatchEntrySize)
	w.u8(uint8(n))
	for _, e := range p.Entries[:n] {
		w.u32(e.EntityID)
		w.i16(e.X)
		w.i16(e.Y)
		w.i16(e.VX)
		w.i16(e.VY)
	}
	return w.buf
}

func DecodeEntityMoveBatchPayload(data []byte) (EntityMoveBatchPayload, error) {
	r := newReader(data)
	count, ok := r.u8()
	if !ok {
		return EntityMoveBatchPayload{}, ErrMalformedPacket
	}
	if int(count) > moveBatchMaxCount {
		return EntityMoveBatchPayload{}, ErrMalformedPacket
	}
	if r.remaining() != int(count)*moveBatchEntrySize {
		return EntityMoveBatchPayload{}, ErrMalformedPacket
	}
	entries := make([]MoveBatchEntry, count)
	for i := range entries {
		var e MoveBatchEntry
		e.EntityID, _ = r.u32()
		e.X, _ = r.i16()
		e.Y, _ = r.i16()
		e.VX, _ = r.i16()
		e.VY, _ = r.i16()
		entries[i] = e
	}
	return EntityMoveBatchPayload{Entries: entries}, nil
}

// BandwidthModePayload is C_SET_BANDWIDTH_MODE.
type BandwidthModePayload struct {
	Mode uint8
}

func (p BandwidthModePayload) Encode() []byte { return []byte{p.Mode} }

func DecodeBandwidthModePayload(data []byte) (BandwidthModePayload, error) {
	r := newReader(data)
	v, ok := r.u8()
	if !ok || r.remaining() != 0 {
		return BandwidthModePayload{}, ErrMalformedPacket
	}
	return BandwidthModePayload{Mode: v}, nil
}

// BandwidthChangedPayload is S_BANDWIDTH_MODE_CHANGED: which user's request
// triggered the change, the mode now in effect, and how many entities are
// currently active under it.
type BandwidthChangedPayload struct {
	UserID      uint32
	Mode        uint8
	ActiveCount uint8
}

func (p BandwidthChangedPayload) Encode() []byte {
	w := newWriter(6)
	w.u32(p.UserID)
	w.u8(p.Mode)
	w.u8(p.ActiveCount)
	return w.buf
}

func DecodeBandwidthChangedPayload(data []byte) (BandwidthChangedPayload, error) {
	r := newReader(data)
	var p BandwidthChangedPayload
	var ok bool
	if p.UserID, ok = r.u32(); !ok {
		return BandwidthChangedPayload{}, ErrMalformedPacket
	}
	if p.Mode, ok = r.u8(); !ok {
		return BandwidthChangedPayload{}, ErrMalformedPacket
	}
	if p.ActiveCount, ok = r.u8(); !ok || r.remaining() != 0 {
		return BandwidthChangedPayload{}, ErrMalformedPacket
	}
	return p, nil
}

// LevelAnnouncePayload is S_LEVEL_ANNOUNCE: the level to load and the
// background to show while loading it, each a NUL-padded name.
type LevelAnnouncePayload struct {
	LevelName  [32]byte
	Background [32]byte
}

func (p LevelAnnouncePayload) Encode() []byte {
	w := newWriter(64)
	w.raw(p.LevelName[:])
	w.raw(p.Background[:])
	return w.buf
}

func DecodeLevelAnnouncePayload(data []byte) (LevelAnnouncePayload, error) {
	r := newReader(data)
	var p LevelAnnouncePayload
	name, ok := r.bytes(32)
	if !ok {
		return LevelAnnouncePayload{}, ErrMalformedPacket
	}
	copy(p.LevelName[:], name)
	background, ok := r.bytes(32)
	if !ok || r.remaining() != 0 {
		return LevelAnnouncePayload{}, ErrMalformedPacket
	}
	copy(p.Background[:], background)
	return p, nil
}

// InputButton bits carried in InputPayload.Buttons.
const (
	InputLeft  uint8 = 1 << 0
	InputRight uint8 = 1 << 1
	InputUp    uint8 = 1 << 2
	InputDown  uint8 = 1 << 3
	InputFire  uint8 = 1 << 4
)

// InputPayload is C_INPUT, unreliable: the local player's button state for
// this tick.
type InputPayload struct {
	Buttons uint8
}

func (p InputPayload) Encode() []byte { return []byte{p.Buttons} }

func DecodeInputPayload(data []byte) (InputPayload, error) {
	r := newReader(data)
	v, ok := r.u8()
	if !ok || r.remaining() != 0 {
		return InputPayload{}, ErrMalformedPacket
	}
	return InputPayload{Buttons: v}, nil
}

// UpdatePosPayload is S_UPDATE_POS, unreliable: the authoritative position
// of the caller's own entity, sent back as a correction.
type UpdatePosPayload struct {
	X float32
	Y float32
}

func (p UpdatePosPayload) Encode() []byte {
	w := newWriter(8)
	w.f32(p.X)
	w.f32(p.Y)
	return w.buf
}

func DecodeUpdatePosPayload(data []byte) (UpdatePosPayload, error) {
	r := newReader(data)
	var p UpdatePosPayload
	var ok bool
	if p.X, ok = r.f32(); !ok {
		return UpdatePosPayload{}, ErrMalformedPacket
	}
	if p.Y, ok = r.f32(); !ok || r.remaining() != 0 {
		return UpdatePosPayload{}, ErrMalformedPacket
	}
	return p, nil
}

// ChatPayload backs both C_CHAT and S_CHAT: a sender id plus a NUL-padded
// UTF-8 message body.
type ChatPayload struct {
	UserID  uint32
	Message [256]byte
}

// NewChatPayload truncates msg to fit the 256-byte field.
func NewChatPayload(userID uint32, msg string) ChatPayload {
	var p ChatPayload
	p.UserID = userID
	copy(p.Message[:], msg)
	return p
}

func (p ChatPayload) Encode() []byte {
	w := newWriter(260)
	w.u32(p.UserID)
	w.raw(p.Message[:])
	return w.buf
}

func DecodeChatPayload(data []byte) (ChatPayload, error) {
	r := newReader(data)
	var p ChatPayload
	var ok bool
	if p.UserID, ok = r.u32(); !ok {
		return ChatPayload{}, ErrMalformedPacket
	}
	msg, ok := r.bytes(256)
	if !ok || r.remaining() != 0 {
		return ChatPayload{}, ErrMalformedPacket
	}
	copy(p.Message[:], msg)
	return p, nil
}

// Text returns the message body up to its first NUL byte.
func (p ChatPayload) Text() string {
	n := len(p.Message)
	for i, b := range p.Message {
		if b == 0 {
			n = i
			break
		}
	}
	return string(p.Message[:n])
}

// PingPayload and PongPayload carry no fields; round-trip timing is derived
// by the caller from send/receive timestamps, not from the wire.
type PingPayload struct{}
type PongPayload struct{}

func (PingPayload) Encode() []byte { return nil }
func (PongPayload) Encode() []byte { return nil }

func DecodePingPayload(data []byte) (PingPayload, error) {
	if len(data) != 0 {
		return PingPayload{}, ErrMalformedPacket
	}
	return PingPayload{}, nil
}

func DecodePongPayload(data []byte) (PongPayload, error) {
	if len(data) != 0 {
		return PongPayload{}, ErrMalformedPacket
	}
	return PongPayload{}, nil
}
