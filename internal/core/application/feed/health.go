// Package feed supervises the change-feed subscription of one session: it
// tracks connection health, engages interval polling when push delivery
// degrades and resubscribes after the channel closes.
package feed

// Health is the connection-health signal shown to operators.
//
//	Disconnected ──> Connected ──> Disconnected ──> Fallback ──> Connected
type Health int

const (
	Disconnected Health = iota
	Connected
	// Fallback means push delivery is down and interval polling is engaged.
	Fallback
)

func (h Health) String() string {
	switch h {
	case Connected:
		return "connected"
	case Fallback:
		return "fallback"
	case Disconnected:
	}
	return "disconnected"
}

func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
