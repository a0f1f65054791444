package meet

import (
	"context"
	"fmt"
)

// ErrNoLink is returned when a backend answered but produced no usable meeting URL.
var ErrNoLink = fmt.Errorf("no meeting link produced")

// Producer returns a URL that participants can open to join a meeting.
type Producer interface {
	ProduceLink(ctx context.Context) (string, error)
}
