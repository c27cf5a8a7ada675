package services

import (
	"context"
	"fmt"
	"time"

	"cctv-monitoring/be/models"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RelayClient is the part of the relay control API the monitor consumes.
type RelayClient interface {
	TestConnection(ctx context.Context) bool
	ListPathStatus(ctx context.Context) map[string]PathStatus
}

// CycleResult is the outcome of one monitoring cycle. A cycle that could not
// trust its inputs or was rolled back has no Streams.
type CycleResult struct {
	StartedAt       time.Time            `json:"started_at"`
	Duration        time.Duration        `json:"duration"`
	RelayReachable  bool                 `json:"relay_reachable"`
	Streams         []StreamInfo         `json:"streams"`
	Counts          map[StreamStatus]int `json:"counts"`
	IncidentsOpened int                  `json:"incidents_opened"`
	Resolved        int                  `json:"incidents_resolved"`
	Notified        int                  `json:"notifications_created"`
	Failed          int                  `json:"failed"`
	Err             error                `json:"-"`
}

func (r CycleResult) Total() int {
	return len(r.Streams)
}

type cameraOutcome struct {
	opened   bool
	resolved bool
	notified int
}

// StreamMonitor runs one evaluation pass over every monitored camera.
type StreamMonitor struct {
	relay       RelayClient
	prober      Prober
	evaluator   *Evaluator
	concurrency int
	logger      *zap.Logger
}

func NewStreamMonitor(relay RelayClient, prober Prober, evaluator *Evaluator, concurrency int, logger *zap.Logger) *StreamMonitor {
	return &StreamMonitor{
		relay:       relay,
		prober:      prober,
		evaluator:   evaluator,
		concurrency: concurrency,
		logger:      logger.Named("stream-monitor"),
	}
}

// Cycle runs one pass over every monitored camera against a single relay
// snapshot. The relay check and the probe fan-out run outside any session:
// cameras are listed in a short read session and all transitions are written
// in a second session opened once every probe has finished. The cycle is
// skipped entirely when the relay API is down.
func (m *StreamMonitor) Cycle(ctx context.Context, sessions SessionFactory) (result CycleResult) {
	result = CycleResult{
		StartedAt: time.Now(),
		Counts:    make(map[StreamStatus]int),
	}
	defer func() {
		result.Duration = time.Since(result.StartedAt)
	}()

	if !m.relay.TestConnection(ctx) {
		m.logger.Warn("MediaMTX API is not reachable, skipping stream status check")
		return result
	}
	result.RelayReachable = true

	var cameras []models.MonitoredCamera
	err := sessions.Run(ctx, func(session Session) error {
		var listErr error
		cameras, listErr = session.Cameras().ListMonitored(ctx)
		return listErr
	})
	if err != nil {
		result.Err = fmt.Errorf("failed to list cameras: %w", err)
		return result
	}
	if len(cameras) == 0 {
		m.logger.Debug("No cameras to check")
		return result
	}

	paths, probes := m.gather(ctx, cameras)
	m.evaluator.StartCycle()

	var recorded CycleResult
	err = sessions.Run(ctx, func(session Session) error {
		recorded = m.record(ctx, session, cameras, paths, probes)
		return nil
	})
	if err != nil {
		result.Err = fmt.Errorf("failed to record stream status: %w", err)
		return result
	}

	result.Streams = recorded.Streams
	result.Counts = recorded.Counts
	result.IncidentsOpened = recorded.IncidentsOpened
	result.Resolved = recorded.Resolved
	result.Notified = recorded.Notified
	result.Failed = recorded.Failed

	m.logger.Info("Stream status check finished",
		zap.Int("total", len(cameras)),
		zap.Int("active", result.Counts[StatusActive]),
		zap.Int("connecting", result.Counts[StatusConnecting]),
		zap.Int("offline", result.Counts[StatusOffline]),
		zap.Int("inactive", result.Counts[StatusInactive]),
		zap.Int("incidents_opened", result.IncidentsOpened),
		zap.Int("failed", result.Failed),
	)
	return result
}

// record decides every camera and writes its transitions inside its own
// savepoint, so one camera's failure leaves the others intact.
func (m *StreamMonitor) record(ctx context.Context, session Session, cameras []models.MonitoredCamera,
	paths map[string]PathStatus, probes map[string]ProbeResult) CycleResult {
	result := CycleResult{Counts: make(map[StreamStatus]int)}

	recorder := NewIncidentRecorder(session.Incidents())
	dispatcher := NewNotificationDispatcher(session.Users(), session.Notifications(), m.logger)

	for _, cam := range cameras {
		path, found := lookupPath(paths, cam.StreamKey)
		probe := probes[cam.IPAddress]
		decision := m.evaluator.Decide(cam, path, found, probe)

		var outcome cameraOutcome
		err := session.Savepoint(ctx, fmt.Sprintf("cctv_%d", cam.ID), func() error {
			var applyErr error
			outcome, applyErr = m.apply(ctx, session, recorder, dispatcher, cam, decision)
			return applyErr
		})
		if err != nil {
			result.Failed++
			m.logger.Error("Failed to record camera status",
				zap.Uint("cctv_id", cam.ID),
				zap.String("cctv_name", cam.Name),
				zap.String("ip_address", cam.IPAddress),
				zap.String("status", string(decision.Status)),
				zap.Error(err),
			)
		} else {
			if outcome.opened {
				result.IncidentsOpened++
			}
			if outcome.resolved {
				result.Resolved++
			}
			result.Notified += outcome.notified
		}

		if probe == NetworkUnreachable || probe == ProbeError {
			m.logger.Warn("Probe inconclusive, camera left unchanged",
				zap.Uint("cctv_id", cam.ID),
				zap.String("ip_address", cam.IPAddress),
				zap.Stringer("probe", probe),
			)
		}

		result.Counts[decision.Status]++
		result.Streams = append(result.Streams, StreamInfo{
			CameraID:    cam.ID,
			CameraName:  cam.Name,
			Location:    cam.LocationName,
			IPAddress:   cam.IPAddress,
			StreamKey:   cam.StreamKey,
			Status:      decision.Status,
			HasSource:   found && path.HasSource,
			SourceReady: found && path.Ready,
			Probe:       probe,
			FailCount:   decision.FailCount,
			LastUpdated: time.Now(),
		})
	}
	return result
}

// gather fetches the relay snapshot and probes every distinct address
// concurrently, returning once all of them have finished.
func (m *StreamMonitor) gather(ctx context.Context, cameras []models.MonitoredCamera) (map[string]PathStatus, map[string]ProbeResult) {
	addresses := lo.Uniq(lo.Map(cameras, func(c models.MonitoredCamera, _ int) string {
		return c.IPAddress
	}))
	results := make([]ProbeResult, len(addresses))
	var paths map[string]PathStatus

	var g errgroup.Group
	if m.concurrency > 0 {
		// one extra slot so the relay fetch never waits behind probes
		g.SetLimit(m.concurrency + 1)
	}

	g.Go(func() error {
		paths = m.relay.ListPathStatus(ctx)
		return nil
	})
	for i, address := range addresses {
		i, address := i, address
		g.Go(func() error {
			results[i] = m.prober.Probe(ctx, address)
			return nil
		})
	}
	_ = g.Wait()

	probes := make(map[string]ProbeResult, len(addresses))
	for i, address := range addresses {
		probes[address] = results[i]
	}
	if paths == nil {
		paths = map[string]PathStatus{}
	}
	return paths, probes
}

func (m *StreamMonitor) apply(ctx context.Context, session Session, recorder *IncidentRecorder,
	dispatcher *NotificationDispatcher, cam models.MonitoredCamera, d Decision) (cameraOutcome, error) {
	var outcome cameraOutcome

	if d.ResolveOpen {
		resolved, err := recorder.ResolveOpen(ctx, cam.ID)
		if err != nil {
			return outcome, err
		}
		if resolved != nil {
			outcome.resolved = true
			m.logger.Info("Camera back online, incident resolved",
				zap.Uint("cctv_id", cam.ID),
				zap.String("cctv_name", cam.Name),
				zap.Uint("incident_id", resolved.ID),
			)
		}
	}

	if d.SetStreaming != nil {
		if err := session.Cameras().SetStreaming(ctx, cam.ID, *d.SetStreaming); err != nil {
			return outcome, fmt.Errorf("failed to update streaming flag: %w", err)
		}
	}

	if d.OpenIncident {
		open, err := recorder.OpenOrSkip(ctx, cam.ID)
		if err != nil {
			return outcome, err
		}
		dispatch := dispatcher.Dispatch(ctx, open)
		if dispatch.Err != nil {
			return outcome, dispatch.Err
		}
		if open.Opened {
			outcome.opened = true
			outcome.notified = dispatch.RecipientCount
			m.logger.Info("Camera offline, incident opened",
				zap.Uint("cctv_id", cam.ID),
				zap.String("cctv_name", cam.Name),
				zap.String("ip_address", cam.IPAddress),
				zap.Uint("incident_id", open.Incident.ID),
				zap.Bool("notified", dispatch.Sent),
				zap.String("reason", dispatch.Reason),
			)
		}
	}

	return outcome, nil
}

func lookupPath(paths map[string]PathStatus, streamKey *string) (PathStatus, bool) {
	if streamKey == nil || *streamKey == "" {
		return PathStatus{}, false
	}
	path, ok := paths[*streamKey]
	return path, ok
}
