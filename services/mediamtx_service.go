package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cctv-monitoring/be/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// pathListPageSize is large enough to fetch the whole path table in one call.
const pathListPageSize = 10000

// PathStatus is the relay's view of one stream path.
type PathStatus struct {
	Name      string `json:"name"`
	HasSource bool   `json:"has_source"`
	Ready     bool   `json:"ready"`
}

type pathSource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type pathListResponse struct {
	PageCount int `json:"pageCount"`
	Items     []struct {
		Name   string      `json:"name"`
		Source *pathSource `json:"source"`
		Ready  bool        `json:"ready"`
	} `json:"items"`
}

// MediaMTXService talks to the MediaMTX control API.
type MediaMTXService struct {
	config config.MediaMTXConfig
	client *resty.Client
	logger *zap.Logger
}

func NewMediaMTXService(cfg config.MediaMTXConfig, logger *zap.Logger) *MediaMTXService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.APIURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(time.Second).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Accept", "application/json")

	return &MediaMTXService{
		config: cfg,
		client: client,
		logger: logger.Named("mediamtx"),
	}
}

// TestConnection reports whether the control API answers with a 2xx.
func (s *MediaMTXService) TestConnection(ctx context.Context) bool {
	resp, err := s.client.R().SetContext(ctx).Get("/config/global/get")
	if err != nil {
		s.logger.Warn("MediaMTX API unreachable", zap.Error(err))
		return false
	}
	if !resp.IsSuccess() {
		s.logger.Warn("MediaMTX API returned an error", zap.Int("status_code", resp.StatusCode()))
		return false
	}
	return true
}

// ListPathStatus fetches the relay path table keyed by stream key. Failures
// are logged and yield an empty map.
func (s *MediaMTXService) ListPathStatus(ctx context.Context) map[string]PathStatus {
	statuses := make(map[string]PathStatus)

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("itemsPerPage", fmt.Sprint(pathListPageSize)).
		Get("/paths/list")
	if err != nil {
		s.logger.Warn("Failed to list MediaMTX paths", zap.Error(err))
		return statuses
	}
	if resp.StatusCode() != http.StatusOK {
		s.logger.Warn("MediaMTX path list returned an error", zap.Int("status_code", resp.StatusCode()))
		return statuses
	}

	var body pathListResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		s.logger.Warn("Failed to decode MediaMTX path list", zap.Error(err))
		return statuses
	}

	for _, item := range body.Items {
		if item.Name == "" {
			continue
		}
		statuses[item.Name] = PathStatus{
			Name:      item.Name,
			HasSource: item.Source != nil,
			Ready:     item.Ready,
		}
	}
	return statuses
}

// EnsurePath makes sure the relay has a path for streamKey, adding it with
// source as an on-demand RTSP pull when missing.
func (s *MediaMTXService) EnsurePath(ctx context.Context, streamKey, source string) bool {
	resp, err := s.client.R().
		SetContext(ctx).
		Get("/config/paths/get/" + url.PathEscape(streamKey))
	if err != nil {
		s.logger.Error("Ensure path failed", zap.String("stream_key", streamKey), zap.Error(err))
		return false
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return true
	case http.StatusNotFound:
		return s.addPath(ctx, streamKey, source)
	default:
		s.logger.Warn("Unexpected response for path",
			zap.String("stream_key", streamKey),
			zap.Int("status_code", resp.StatusCode()),
		)
		return false
	}
}

func (s *MediaMTXService) addPath(ctx context.Context, streamKey, source string) bool {
	pathConfig := map[string]interface{}{
		"source":         source,
		"sourceProtocol": "tcp",
		"sourceOnDemand": true,
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(pathConfig).
		Post("/config/paths/add/" + url.PathEscape(streamKey))
	if err != nil {
		s.logger.Warn("Failed to add path", zap.String("stream_key", streamKey), zap.Error(err))
		return false
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated:
		s.logger.Info("Path added", zap.String("stream_key", streamKey))
		return true
	case http.StatusConflict:
		return true
	default:
		s.logger.Warn("Failed to add path",
			zap.String("stream_key", streamKey),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return false
	}
}

// RTSPSourceURL builds the pull URL the relay uses for a camera.
func (s *MediaMTXService) RTSPSourceURL(ipAddress string) string {
	return fmt.Sprintf("rtsp://%s:%s@%s:554/cam/realmonitor?channel=%d&subtype=%d",
		url.QueryEscape(s.config.CameraUser), url.QueryEscape(s.config.CameraPassword),
		ipAddress, s.config.CameraChannel, s.config.CameraSubtype)
}

// HLSURL returns the browser-facing playlist URL for a stream key.
func (s *MediaMTXService) HLSURL(streamKey string) string {
	return fmt.Sprintf("http://%s:%s/%s/index.m3u8", s.config.PublicHost, s.config.HLSPort, streamKey)
}
