package ports

import "context"

// AlertPlayer drives the audible new-order alert on the operator's device.
type AlertPlayer interface {
	// Play starts the alert sound. muted=true plays silently, used to unlock
	// autoplay after a user interaction.
	Play(ctx context.Context, muted bool) error
	Pause(ctx context.Context) error
}
