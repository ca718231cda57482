package pipeline

import (
	"log/slog"

	"github.com/soocke/pixel-aim-go/config"
	"github.com/soocke/pixel-aim-go/domain/action"
	"github.com/soocke/pixel-aim-go/domain/aim"
	"github.com/soocke/pixel-aim-go/domain/capture"
	"github.com/soocke/pixel-aim-go/domain/detect"
	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/preview"
)

// Role names one independently scheduled worker.
type Role int

const (
	RoleCapture Role = iota
	RoleInference
	RoleControl
	RolePreview
	numRoles
)

// detectRoles are started and stopped together.
var detectRoles = []Role{RoleCapture, RoleInference, RoleControl}

func (r Role) String() string {
	switch r {
	case RoleCapture:
		return "capture"
	case RoleInference:
		return "inference"
	case RoleControl:
		return "control"
	case RolePreview:
		return "preview"
	default:
		return "unknown"
	}
}

// State is the lifecycle state of a role.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// RoleListener is called on each role state transition.
type RoleListener func(role Role, prev, next State)

// ConfigSource hands out configuration snapshots.
type ConfigSource interface {
	Read() config.Config
}

// DetectorFactory builds a detector for a model path.
type DetectorFactory func(modelPath string, logger *slog.Logger) detect.Detector

// Capabilities are the external collaborators the workers drive. Nil
// entries fall back: no grabber uses the platform grabber, a nil detector
// factory uses detect.New, no actuator discards moves, no key state uses the
// interval activation and no renderer keeps frames in a preview.Latest.
type Capabilities struct {
	Grabber     capture.Grabber
	NewDetector DetectorFactory
	Actuator    action.Actuator
	Keys        action.KeyState
	Renderer    preview.Renderer
}

// Options select the channel backend and arena name.
type Options struct {
	Backend framechan.Backend
	// Name of the arena; a unique name is generated when empty.
	Name string
}

// RoleStatus describes one role.
type RoleStatus struct {
	State    string `json:"state"`
	WorkerID string `json:"worker_id,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	Channel    string                `json:"channel"`
	Roles      map[string]RoleStatus `json:"roles"`
	Stats      framechan.Stats       `json:"channel_stats"`
	Capture    *capture.Stats        `json:"capture,omitempty"`
	Inference  *detect.Stats         `json:"inference,omitempty"`
	Control    *aim.Stats            `json:"control,omitempty"`
	Preview    *preview.Stats        `json:"preview,omitempty"`
	Detecting  bool                  `json:"detecting"`
	Previewing bool                  `json:"previewing"`
}

type discardActuator struct{}

func (discardActuator) MoveRelative(int, int) error { return nil }
