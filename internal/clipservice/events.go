package clipservice

// Event types emitted to subscribers.
const (
	EventClipCaptured      = "clip.captured"
	EventClipRemoved       = "clip.removed"
	EventTransformStarted  = "transform.started"
	EventTransformFinished = "transform.finished"
	EventTransformFailed   = "transform.failed"
	EventToggleHistory     = "ui.toggle-history"
	EventModelsUpdated     = "models.updated"
)

// Event is a notification for UI listeners.
type Event struct {
	Type string
	Data any
}

// ClipRef identifies a record that no longer exists.
type ClipRef struct {
	ID string `json:"id"`
}

// TransformStatus is the payload of transform events.
type TransformStatus struct {
	ClipID string `json:"clip_id"`
	Error  string `json:"error,omitempty"`
}
