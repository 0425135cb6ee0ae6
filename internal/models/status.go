package models

type RunState string

const (
	StateUnknown    RunState = "unknown"
	StateNotRunning RunState = "not_running"
	StateRunning    RunState = "running"
)

type DemoStatus struct {
	Status RunState `json:"status"`
	Port   *int     `json:"port"`
	PID    *int     `json:"pid,omitempty"`
	URL    *string  `json:"url,omitempty"`
}

// ControlResult is the reply to start/stop. Status is one of started,
// already_running, stopped, not_found, not_running or error.
type ControlResult struct {
	Status  string `json:"status"`
	Port    *int   `json:"port,omitempty"`
	PID     *int   `json:"pid,omitempty"`
	Message string `json:"message,omitempty"`
}

type Redirect struct {
	URL    *string  `json:"url"`
	Status RunState `json:"status"`
	Port   *int     `json:"port,omitempty"`
}
