package services

import (
	"time"

	"cctv-monitoring/be/models"
)

type StreamStatus string

const (
	StatusActive     StreamStatus = "active"
	StatusConnecting StreamStatus = "connecting"
	StatusOffline    StreamStatus = "offline"
	StatusInactive   StreamStatus = "inactive"
)

const DefaultOfflineThreshold = 3

// StreamInfo is the per-camera result of one monitoring cycle.
type StreamInfo struct {
	CameraID    uint         `json:"cctv_id"`
	CameraName  string       `json:"cctv_name"`
	Location    string       `json:"location,omitempty"`
	IPAddress   string       `json:"ip_address"`
	StreamKey   *string      `json:"stream_key,omitempty"`
	Status      StreamStatus `json:"status"`
	HasSource   bool         `json:"has_source"`
	SourceReady bool         `json:"source_ready"`
	Probe       ProbeResult  `json:"probe"`
	FailCount   int          `json:"fail_count"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Decision is the evaluator's verdict for one camera and the writes it implies.
type Decision struct {
	Status StreamStatus
	// SetStreaming is nil when the streaming flag must not change.
	SetStreaming *bool
	// ResolveOpen closes the camera's open incident, if any.
	ResolveOpen bool
	// OpenIncident asks the recorder to open an incident unless one is open.
	OpenIncident bool
	FailCount    int
}

// Evaluator maps relay readiness and probe results to a camera status,
// debouncing host-down probes through its FailureCounter.
type Evaluator struct {
	counter   *FailureCounter
	threshold int

	// failures seen this cycle, so cameras sharing an address count once
	cycle map[string]int
}

func NewEvaluator(counter *FailureCounter, threshold int) *Evaluator {
	if threshold <= 0 {
		threshold = DefaultOfflineThreshold
	}
	return &Evaluator{counter: counter, threshold: threshold}
}

func (e *Evaluator) Threshold() int {
	return e.threshold
}

// StartCycle marks the beginning of a pass over all cameras. Decide is not
// safe for concurrent use within a cycle.
func (e *Evaluator) StartCycle() {
	e.cycle = make(map[string]int)
}

// Decide evaluates one camera. path is the relay entry for the camera's
// stream key; found is false when the relay has no such entry.
func (e *Evaluator) Decide(cam models.MonitoredCamera, path PathStatus, found bool, probe ProbeResult) Decision {
	if found && path.Ready {
		e.counter.Reset(cam.IPAddress)
		return Decision{
			Status:       StatusActive,
			SetStreaming: streamingChange(cam, true),
			ResolveOpen:  true,
		}
	}

	switch probe {
	case Reachable:
		e.counter.Reset(cam.IPAddress)
		return Decision{
			Status:       StatusConnecting,
			SetStreaming: streamingChange(cam, true),
		}
	case HostDown:
		failures := e.recordFailure(cam.IPAddress)
		if failures < e.threshold {
			return Decision{Status: StatusConnecting, FailCount: failures}
		}
		return Decision{
			Status:       StatusOffline,
			SetStreaming: streamingChange(cam, false),
			OpenIncident: true,
			FailCount:    failures,
		}
	default:
		// The monitoring host's own network is impaired; leave everything as is.
		return Decision{Status: StatusInactive, FailCount: e.counter.Get(cam.IPAddress)}
	}
}

func (e *Evaluator) recordFailure(address string) int {
	if e.cycle == nil {
		return e.counter.Increment(address)
	}
	if n, ok := e.cycle[address]; ok {
		return n
	}
	n := e.counter.Increment(address)
	e.cycle[address] = n
	return n
}

func streamingChange(cam models.MonitoredCamera, want bool) *bool {
	if cam.IsStreaming == want {
		return nil
	}
	return &want
}
