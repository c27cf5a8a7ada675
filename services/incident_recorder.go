package services

import (
	"context"
	"fmt"

	"cctv-monitoring/be/models"
)

// OpenResult tells whether OpenOrSkip created the incident it returns.
type OpenResult struct {
	Incident *models.History
	Opened   bool
}

// IncidentRecorder keeps at most one open incident per camera.
type IncidentRecorder struct {
	incidents IncidentStore
}

func NewIncidentRecorder(incidents IncidentStore) *IncidentRecorder {
	return &IncidentRecorder{incidents: incidents}
}

// OpenOrSkip opens an incident for the camera unless its latest incident is
// still open, in which case that incident is returned with Opened=false.
func (r *IncidentRecorder) OpenOrSkip(ctx context.Context, cameraID uint) (OpenResult, error) {
	latest, err := r.incidents.Latest(ctx, cameraID)
	if err != nil {
		return OpenResult{}, fmt.Errorf("failed to load latest incident: %w", err)
	}
	if latest != nil && latest.IsOpen() {
		return OpenResult{Incident: latest}, nil
	}

	incident, err := r.incidents.Create(ctx, cameraID)
	if err != nil {
		return OpenResult{}, fmt.Errorf("failed to create incident: %w", err)
	}
	return OpenResult{Incident: incident, Opened: true}, nil
}

// Resolve marks the incident serviced. Already resolved incidents are left alone.
func (r *IncidentRecorder) Resolve(ctx context.Context, incident *models.History) error {
	if incident == nil || !incident.IsOpen() {
		return nil
	}
	if err := r.incidents.Resolve(ctx, incident.ID); err != nil {
		return fmt.Errorf("failed to resolve incident %d: %w", incident.ID, err)
	}
	incident.Service = true
	return nil
}

// ResolveOpen resolves the camera's open incident and returns it, or nil
// when the camera has none.
func (r *IncidentRecorder) ResolveOpen(ctx context.Context, cameraID uint) (*models.History, error) {
	latest, err := r.incidents.Latest(ctx, cameraID)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest incident: %w", err)
	}
	if latest == nil || !latest.IsOpen() {
		return nil, nil
	}
	if err := r.Resolve(ctx, latest); err != nil {
		return nil, err
	}
	return latest, nil
}
