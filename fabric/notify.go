package fabric

import (
	"time"

	"github.com/marketpulse/pipeline/model"
)

// NewNotification builds a completion envelope (§3, §6.3) stamped with
// the current wall-clock time.
func NewNotification(event string, statistics map[string]interface{}) model.Notification {
	return model.Notification{
		Event:      event,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Statistics: statistics,
	}
}
