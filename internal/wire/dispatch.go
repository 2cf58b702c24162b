package wire

// DecodePayload decodes the payload bytes for a known opcode into its typed
// payload struct, returned as interface{} for the caller to type-switch on.
// This is the single dispatch point both orchestrators (client/server) use
// so the opcode -> payload-type mapping lives in exactly one place.
func DecodePayload(op OpCode, payload []byte) (interface{}, error) {
	switch op {
	case OpConnect:
		return DecodeConnectPayload(payload)
	case OpAccept:
		return DecodeAcceptPayload(payload)
	case OpDisconnect:
		return DecodeDisconnectPayload(payload)
	case OpGetUsers:
		return DecodeConnectPayload(payload) // empty payload, same shape
	case OpUsersList:
		return DecodeUsersListPayload(payload)
	case OpUpdateState:
		return DecodeUpdateStatePayload(payload)
	case OpGameOver:
		return DecodeGameOverPayload(payload)
	case OpReady:
		return DecodeReadyPayload(payload)
	case OpGameStart:
		return DecodeGameStartPayload(payload)
	case OpPlayerReadyState:
		return DecodePlayerReadyStatePayload(payload)
	case OpRequestLobbies:
		return DecodeConnectPayload(payload) // empty payload, same shape
	case OpLobbyList:
		return DecodeLobbyListPayload(payload)
	case OpJoinLobby:
		return DecodeJoinLobbyPayload(payload)
	case OpJoinLobbyResponse:
		return DecodeJoinLobbyResponsePayload(payload)
	case OpEntitySpawn:
		return DecodeEntitySpawnPayload(payload)
	case OpEntityMove:
		return DecodeEntityMovePayload(payload)
	case OpEntityDestroy:
		return DecodeEntityDestroyPayload(payload)
	case OpEntityHealth:
		return DecodeEntityHealthPayload(payload)
	case OpPowerupEvent:
		return DecodePowerupEventPayload(payload)
	case OpEntityMoveBatch:
		return DecodeEntityMoveBatchPayload(payload)
	case OpSetBandwidthMode:
		return DecodeBandwidthModePayload(payload)
	case OpBandwidthChanged:
		return DecodeBandwidthChangedPayload(payload)
	case OpLevelAnnounce:
		return DecodeLevelAnnouncePayload(payload)
	case OpInput:
		return DecodeInputPayload(payload)
	case OpUpdatePos:
		return DecodeUpdatePosPayload(payload)
	case OpChat:
		return DecodeChatPayload(payload)
	case OpServerChat:
		return DecodeChatPayload(payload)
	case OpPing:
		return DecodePingPayload(payload)
	case OpPong:
		return DecodePongPayload(payload)
	case OpAck:
		return struct{}{}, nil
	default:
		return nil, ErrUnknownOpcode
	}
}
