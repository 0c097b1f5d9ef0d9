package syncchannel

// State is the connection lifecycle of a Channel.
//
// Valid transitions:
//
//	Disconnected -> Connecting            (Connect)
//	Connecting   -> Connected             (dial succeeded)
//	Connecting   -> Reconnecting          (dial failed, attempts remain)
//	Connected    -> Reconnecting          (unexpected close)
//	Reconnecting -> Connecting            (backoff elapsed)
//	any          -> Disconnected          (Disconnect, or attempt cap reached)
//
// Disconnected after the attempt cap is terminal until Connect is called
// again explicitly.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String implements fmt.Stringer for logging.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}
