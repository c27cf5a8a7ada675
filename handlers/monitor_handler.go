package handlers

import (
	"net/http"
	"time"

	"cctv-monitoring/be/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	// Origins are enforced by the CORS layer and the token check.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type MonitorHandler struct {
	relay   services.RelayClient
	monitor *services.Monitor
	hub     *services.StatusHub
	logger  *zap.Logger
}

func NewMonitorHandler(relay services.RelayClient, monitor *services.Monitor, hub *services.StatusHub, logger *zap.Logger) *MonitorHandler {
	return &MonitorHandler{
		relay:   relay,
		monitor: monitor,
		hub:     hub,
		logger:  logger.Named("monitor-api"),
	}
}

// CycleSummary is the client view of one monitoring cycle.
type CycleSummary struct {
	StartedAt            time.Time                     `json:"started_at"`
	DurationMs           int64                         `json:"duration_ms"`
	MediaMTXOnline       bool                          `json:"mediamtx_online"`
	Total                int                           `json:"total"`
	Counts               map[services.StreamStatus]int `json:"counts"`
	IncidentsOpened      int                           `json:"incidents_opened"`
	IncidentsResolved    int                           `json:"incidents_resolved"`
	NotificationsCreated int                           `json:"notifications_created"`
	Failed               int                           `json:"failed"`
	Error                string                        `json:"error,omitempty"`
	Streams              []services.StreamInfo         `json:"streams"`
}

func newCycleSummary(r services.CycleResult) CycleSummary {
	summary := CycleSummary{
		StartedAt:            r.StartedAt,
		DurationMs:           r.Duration.Milliseconds(),
		MediaMTXOnline:       r.RelayReachable,
		Total:                r.Total(),
		Counts:               r.Counts,
		IncidentsOpened:      r.IncidentsOpened,
		IncidentsResolved:    r.Resolved,
		NotificationsCreated: r.Notified,
		Failed:               r.Failed,
		Streams:              r.Streams,
	}
	if summary.Streams == nil {
		summary.Streams = []services.StreamInfo{}
	}
	if summary.Counts == nil {
		summary.Counts = map[services.StreamStatus]int{}
	}
	if r.Err != nil {
		summary.Error = r.Err.Error()
	}
	return summary
}

func (h *MonitorHandler) GetMediaMTXStatus(c *gin.Context) {
	online := h.relay.TestConnection(c.Request.Context())
	status := "offline"
	if online {
		status = "online"
	}
	c.JSON(http.StatusOK, gin.H{"mediamtx_online": online, "status": status})
}

// GetAllStreams runs a monitoring cycle now. It waits for a scheduled cycle
// that is already running instead of overlapping with it.
func (h *MonitorHandler) GetAllStreams(c *gin.Context) {
	result := h.monitor.RunCycle(c.Request.Context())
	summary := newCycleSummary(result)

	switch {
	case result.Err != nil:
		c.JSON(http.StatusInternalServerError, summary)
	case !result.RelayReachable:
		c.JSON(http.StatusServiceUnavailable, summary)
	default:
		c.JSON(http.StatusOK, summary)
	}
}

func (h *MonitorHandler) GetMonitorState(c *gin.Context) {
	response := gin.H{
		"state":       h.monitor.State(),
		"subscribers": h.hub.Count(),
	}
	if last := h.monitor.LastResult(); last != nil {
		response["last_cycle"] = newCycleSummary(*last)
	}
	c.JSON(http.StatusOK, response)
}

// StreamStatusWebSocket pushes every completed cycle to the client until
// it disconnects.
func (h *MonitorHandler) StreamStatusWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := h.hub.Subscribe()
	defer h.hub.Unsubscribe(updates)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if last := h.monitor.LastResult(); last != nil {
		if err := h.writeJSON(conn, newCycleSummary(*last)); err != nil {
			return
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case result, ok := <-updates:
			if !ok {
				return
			}
			if err := h.writeJSON(conn, newCycleSummary(result)); err != nil {
				h.logger.Debug("WebSocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *MonitorHandler) writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
