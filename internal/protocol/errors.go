package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Command layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownDef    = "E_UNKNOWN_DEF"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrInternal      = "E_INTERNAL"

	// Placement rejections.
	ErrRotation          = "E_ROTATION"
	ErrBounds            = "E_BOUNDS"
	ErrCollision         = "E_COLLISION"
	ErrTerrainForbidden  = "E_TERRAIN_FORBIDDEN"
	ErrTerrainNotAllowed = "E_TERRAIN_NOT_ALLOWED"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrBadRequest:        {},
	ErrUnknownDef:        {},
	ErrInvalidTarget:     {},
	ErrInternal:          {},
	ErrRotation:          {},
	ErrBounds:            {},
	ErrCollision:         {},
	ErrTerrainForbidden:  {},
	ErrTerrainNotAllowed: {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
