package services

import (
	"context"

	"cctv-monitoring/be/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PathManager is the relay API surface used to publish camera streams.
type PathManager interface {
	RelayClient
	EnsurePath(ctx context.Context, streamKey, source string) bool
	RTSPSourceURL(ipAddress string) string
	HLSURL(streamKey string) string
}

type CameraLister interface {
	List(ctx context.Context, locationID uint) ([]models.Camera, error)
}

// CameraStream is the playback view of one camera.
type CameraStream struct {
	CameraID    uint    `json:"cctv_id"`
	Name        string  `json:"cctv_name"`
	IPAddress   string  `json:"ip_address"`
	StreamKey   *string `json:"stream_key,omitempty"`
	HLSURL      string  `json:"hls_url,omitempty"`
	Configured  bool    `json:"configured"`
	Ready       bool    `json:"ready"`
	IsStreaming bool    `json:"is_streaming"`
}

type LocationStreams struct {
	LocationID  uint           `json:"location_id"`
	RelayOnline bool           `json:"mediamtx_online"`
	Streams     []CameraStream `json:"streams"`
}

type StreamService struct {
	relay       PathManager
	cameras     CameraLister
	concurrency int
	logger      *zap.Logger
}

func NewStreamService(relay PathManager, cameras CameraLister, concurrency int, logger *zap.Logger) *StreamService {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &StreamService{
		relay:       relay,
		cameras:     cameras,
		concurrency: concurrency,
		logger:      logger.Named("streams"),
	}
}

// StreamFor ensures the camera has a relay path and returns its playback view.
func (s *StreamService) StreamFor(ctx context.Context, camera models.Camera) CameraStream {
	stream := CameraStream{
		CameraID:    camera.ID,
		Name:        camera.Name,
		IPAddress:   camera.IPAddress,
		StreamKey:   camera.StreamKey,
		IsStreaming: camera.IsStreaming,
	}
	if camera.StreamKey == nil || *camera.StreamKey == "" {
		return stream
	}
	stream.Configured = s.relay.EnsurePath(ctx, *camera.StreamKey, s.relay.RTSPSourceURL(camera.IPAddress))
	if stream.Configured {
		stream.HLSURL = s.relay.HLSURL(*camera.StreamKey)
	}
	return stream
}

// LocationStreams makes sure every camera at a location has a relay path
// and reports what the relay currently has. When the relay is down every
// camera is reported as not streaming and no URLs are handed out.
func (s *StreamService) LocationStreams(ctx context.Context, locationID uint) (LocationStreams, error) {
	cameras, err := s.cameras.List(ctx, locationID)
	if err != nil {
		return LocationStreams{}, err
	}

	result := LocationStreams{LocationID: locationID, Streams: make([]CameraStream, len(cameras))}

	if !s.relay.TestConnection(ctx) {
		for i, camera := range cameras {
			result.Streams[i] = CameraStream{
				CameraID:  camera.ID,
				Name:      camera.Name,
				IPAddress: camera.IPAddress,
				StreamKey: camera.StreamKey,
			}
		}
		return result, nil
	}
	result.RelayOnline = true

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, camera := range cameras {
		i, camera := i, camera
		g.Go(func() error {
			result.Streams[i] = s.StreamFor(ctx, camera)
			return nil
		})
	}
	_ = g.Wait()

	paths := s.relay.ListPathStatus(ctx)
	for i := range result.Streams {
		path, ok := lookupPath(paths, result.Streams[i].StreamKey)
		result.Streams[i].Ready = ok && path.Ready
	}

	s.logger.Debug("Location streams prepared",
		zap.Uint("location_id", locationID),
		zap.Int("cameras", len(cameras)),
	)
	return result, nil
}
