package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"cctv-monitoring/be/models"
)

// memoryStore is an in-memory persistence layer with transaction and
// savepoint semantics close enough to the gorm session for core tests.
type memoryStore struct {
	mu            sync.Mutex
	cameras       []models.MonitoredCamera
	histories     []models.History
	notifications []models.Notification
	userIDs       []uint

	nextHistoryID      uint
	nextNotificationID uint
	writes             int

	failIncidentCreate map[uint]error
	failNotify         error
	failList           error
}

type memorySnapshot struct {
	cameras            []models.MonitoredCamera
	histories          []models.History
	notifications      []models.Notification
	nextHistoryID      uint
	nextNotificationID uint
	writes             int
}

func newMemoryStore(userIDs ...uint) *memoryStore {
	return &memoryStore{
		userIDs:            userIDs,
		failIncidentCreate: map[uint]error{},
	}
}

func (s *memoryStore) addCamera(id uint, name, ip string, streamKey string, streaming bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cam := models.MonitoredCamera{ID: id, Name: name, IPAddress: ip, IsStreaming: streaming, LocationName: "Gate"}
	if streamKey != "" {
		key := streamKey
		cam.StreamKey = &key
	}
	s.cameras = append(s.cameras, cam)
}

func (s *memoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memorySnapshot{
		cameras:            append([]models.MonitoredCamera(nil), s.cameras...),
		histories:          append([]models.History(nil), s.histories...),
		notifications:      append([]models.Notification(nil), s.notifications...),
		nextHistoryID:      s.nextHistoryID,
		nextNotificationID: s.nextNotificationID,
		writes:             s.writes,
	}
}

func (s *memoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = snap.cameras
	s.histories = snap.histories
	s.notifications = snap.notifications
	s.nextHistoryID = snap.nextHistoryID
	s.nextNotificationID = snap.nextNotificationID
	s.writes = snap.writes
}

func (s *memoryStore) streaming(cameraID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cameras {
		if c.ID == cameraID {
			return c.IsStreaming
		}
	}
	return false
}

func (s *memoryStore) incidents(cameraID uint) []models.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.History
	for _, h := range s.histories {
		if h.CameraID == cameraID {
			out = append(out, h)
		}
	}
	return out
}

func (s *memoryStore) openIncidents(cameraID uint) int {
	n := 0
	for _, h := range s.incidents(cameraID) {
		if h.IsOpen() {
			n++
		}
	}
	return n
}

func (s *memoryStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *memoryStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

type memCameras struct{ s *memoryStore }

func (m memCameras) ListMonitored(context.Context) ([]models.MonitoredCamera, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failList != nil {
		return nil, m.s.failList
	}
	return append([]models.MonitoredCamera(nil), m.s.cameras...), nil
}

func (m memCameras) SetStreaming(_ context.Context, cameraID uint, streaming bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.cameras {
		if m.s.cameras[i].ID == cameraID {
			m.s.cameras[i].IsStreaming = streaming
			m.s.writes++
			return nil
		}
	}
	return errors.New("camera not found")
}

type memIncidents struct{ s *memoryStore }

func (m memIncidents) Latest(_ context.Context, cameraID uint) (*models.History, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var latest *models.History
	for i := range m.s.histories {
		h := m.s.histories[i]
		if h.CameraID == cameraID && (latest == nil || h.ID > latest.ID) {
			latest = &h
		}
	}
	return latest, nil
}

func (m memIncidents) Create(_ context.Context, cameraID uint) (*models.History, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.failIncidentCreate[cameraID]; err != nil {
		return nil, err
	}
	m.s.nextHistoryID++
	h := models.History{ID: m.s.nextHistoryID, CameraID: cameraID, CreatedAt: time.Now()}
	m.s.histories = append(m.s.histories, h)
	m.s.writes++
	return &h, nil
}

func (m memIncidents) Resolve(_ context.Context, historyID uint) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for i := range m.s.histories {
		if m.s.histories[i].ID == historyID {
			m.s.histories[i].Service = true
			m.s.writes++
			return nil
		}
	}
	return errors.New("history not found")
}

type memNotifications struct{ s *memoryStore }

func (m memNotifications) Create(_ context.Context, userID, historyID uint) (*models.Notification, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failNotify != nil {
		return nil, m.s.failNotify
	}
	m.s.nextNotificationID++
	n := models.Notification{ID: m.s.nextNotificationID, UserID: userID, HistoryID: historyID}
	m.s.notifications = append(m.s.notifications, n)
	m.s.writes++
	return &n, nil
}

type memUsers struct{ s *memoryStore }

func (m memUsers) ListActiveIDs(context.Context) ([]uint, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return append([]uint(nil), m.s.userIDs...), nil
}

type memorySession struct{ s *memoryStore }

func (m memorySession) Cameras() CameraStore             { return memCameras{m.s} }
func (m memorySession) Incidents() IncidentStore         { return memIncidents{m.s} }
func (m memorySession) Notifications() NotificationStore { return memNotifications{m.s} }
func (m memorySession) Users() UserStore                 { return memUsers{m.s} }

func (m memorySession) Savepoint(_ context.Context, _ string, fn func() error) error {
	snap := m.s.snapshot()
	if err := fn(); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

// memorySessions rolls the store back when fn fails or panics.
type memorySessions struct {
	store  *memoryStore
	runs   atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
	failOn func(run int32) error
}

func (f *memorySessions) Run(ctx context.Context, fn func(Session) error) (err error) {
	run := f.runs.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	snap := f.store.snapshot()
	defer func() {
		if r := recover(); r != nil {
			f.store.restore(snap)
			panic(r)
		}
	}()

	if f.failOn != nil {
		if err := f.failOn(run); err != nil {
			return err
		}
	}
	if err := fn(memorySession{f.store}); err != nil {
		f.store.restore(snap)
		return err
	}
	return nil
}

type fakeRelay struct {
	mu        sync.Mutex
	up        bool
	paths     map[string]PathStatus
	listCalls int
	connCalls int
	panicMsg  string
}

func newFakeRelay() *fakeRelay {
	return &fakeRelay{up: true, paths: map[string]PathStatus{}}
}

func (r *fakeRelay) TestConnection(context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connCalls++
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	return r.up
}

func (r *fakeRelay) ListPathStatus(context.Context) map[string]PathStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	out := make(map[string]PathStatus, len(r.paths))
	for k, v := range r.paths {
		out[k] = v
	}
	return out
}

func (r *fakeRelay) setReady(streamKey string, ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[streamKey] = PathStatus{Name: streamKey, HasSource: ready, Ready: ready}
}

func (r *fakeRelay) connChecks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connCalls
}

func (r *fakeRelay) setUp(up bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.up = up
}

type fakeProber struct {
	mu      sync.Mutex
	results map[string]ProbeResult
	calls   map[string]int
	delay   time.Duration
	onProbe func()
}

func newFakeProber() *fakeProber {
	return &fakeProber{results: map[string]ProbeResult{}, calls: map[string]int{}}
}

func (p *fakeProber) set(address string, result ProbeResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[address] = result
}

func (p *fakeProber) callCount(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[address]
}

func (p *fakeProber) Probe(ctx context.Context, address string) ProbeResult {
	if p.onProbe != nil {
		p.onProbe()
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ProbeError
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[address]++
	result, ok := p.results[address]
	if !ok {
		return ProbeError
	}
	return result
}
