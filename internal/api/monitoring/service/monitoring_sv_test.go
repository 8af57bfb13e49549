package monitoringService

import (
	"DrowsinessMonitor/internal/api/monitoring"
	monitoringRepository "DrowsinessMonitor/internal/api/monitoring/repository"
	"DrowsinessMonitor/internal/entity"
	"DrowsinessMonitor/pkg/alert"
	"DrowsinessMonitor/pkg/drowsiness"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]entity.MonitoringSession
	events   []entity.AlertEvent
	failNew  bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]entity.MonitoringSession)}
}

func (m *memoryStore) NewClient(bool) (monitoringRepository.Client, error) {
	if m.failNew {
		return monitoringRepository.Client{}, errors.New("db down")
	}
	return monitoringRepository.Client{
		Session:  (*memorySessions)(m),
		Alert:    (*memoryAlerts)(m),
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type memorySessions memoryStore

func (m *memorySessions) CreateSession(_ context.Context, s entity.MonitoringSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memorySessions) GetSessionByID(_ context.Context, id string) (entity.MonitoringSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return entity.MonitoringSession{}, monitoring.ErrSessionNotFound
	}
	return s, nil
}

func (m *memorySessions) EndSession(_ context.Context, id string, endedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.EndedAt != nil {
		return monitoring.ErrSessionNotFound
	}
	s.EndedAt = &endedAt
	m.sessions[id] = s
	return nil
}

type memoryAlerts memoryStore

func (m *memoryAlerts) CreateEvent(_ context.Context, e entity.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memoryAlerts) ListEventsBySession(_ context.Context, sessionID string, limit int) ([]entity.AlertEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.AlertEvent
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
	seq int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeUtils struct {
	clock *stepClock
}

func (u fakeUtils) NewULIDFromTimestamp(time.Time) (string, error) {
	u.clock.mu.Lock()
	defer u.clock.mu.Unlock()
	u.clock.seq++
	return fmt.Sprintf("ID%04d", u.clock.seq), nil
}

func (u fakeUtils) Clock() time.Time { return u.clock.Now() }

type fakeProvider struct {
	result *entity.LandmarkResult
	err    error
	calls  int
}

func (p *fakeProvider) ProcessFrame([]byte) (*entity.LandmarkResult, error) {
	p.calls++
	return p.result, p.err
}

func (p *fakeProvider) IsConnected() bool { return p.err == nil }

func (p *fakeProvider) Reconnect() error { return nil }

func (p *fakeProvider) Close() {}

type countingSink struct {
	mu   sync.Mutex
	sent []alert.Notification
}

func (s *countingSink) Name() string { return "test" }

func (s *countingSink) Send(_ context.Context, n *alert.Notification) error {
	s.mu.Lock()
	s.sent = append(s.sent, *n)
	s.mu.Unlock()
	n.AudioLink = "https://audio.example/" + n.Key
	return nil
}

type fixture struct {
	svc      IMonitoringService
	store    *memoryStore
	provider *fakeProvider
	sink     *countingSink
	clock    *stepClock
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &stepClock{now: time.Date(2025, 3, 1, 6, 30, 0, 0, time.UTC)}
	store := newMemoryStore()
	provider := &fakeProvider{}
	sink := &countingSink{}
	log := quietLogger()
	notifier := alert.New(log, alert.WithClock(clock.Now), alert.WithSinks(sink))

	svc := NewMonitoringService(log, store, provider, notifier, fakeUtils{clock: clock}, drowsiness.DefaultConfig())
	return &fixture{svc: svc, store: store, provider: provider, sink: sink, clock: clock}
}

// face builds a 468-point landmark set whose default-index features equal the
// given EAR and MAR with a head tilt of zero degrees.
func face(ear, mar float64) drowsiness.Landmarks {
	lm := make(drowsiness.Landmarks, 468)
	ix := drowsiness.DefaultIndices()
	h := ear / 2
	lm[ix.Eye[0]] = drowsiness.Point{X: 0, Y: 0}
	lm[ix.Eye[3]] = drowsiness.Point{X: 1, Y: 0}
	lm[ix.Eye[1]] = drowsiness.Point{X: 0.3, Y: -h}
	lm[ix.Eye[5]] = drowsiness.Point{X: 0.3, Y: h}
	lm[ix.Eye[2]] = drowsiness.Point{X: 0.7, Y: -h}
	lm[ix.Eye[4]] = drowsiness.Point{X: 0.7, Y: h}

	lm[ix.Mouth[0]] = drowsiness.Point{X: 0, Y: 5}
	lm[ix.Mouth[1]] = drowsiness.Point{X: 1, Y: 5}
	lm[ix.Mouth[2]] = drowsiness.Point{X: 0.5, Y: 5 - mar/2}
	lm[ix.Mouth[3]] = drowsiness.Point{X: 0.5, Y: 5 + mar/2}

	lm[ix.Head[0]] = drowsiness.Point{X: 2.5, Y: 1}
	lm[ix.Head[1]] = drowsiness.Point{X: -0.5, Y: 1}
	lm[ix.Head[2]] = drowsiness.Point{X: 1.5, Y: 1}
	return lm
}

func (f *fixture) start(t *testing.T, operator string) entity.MonitoringSession {
	t.Helper()
	session, err := f.svc.StartSession(context.Background(), monitoring.CreateSessionRequest{
		DriverID:   "driver-7",
		OperatorID: operator,
	})
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	return session
}

func TestStartSessionPersistsAndAppliesOverrides(t *testing.T) {
	f := newFixture(t)
	frames := 5

	session, err := f.svc.StartSession(context.Background(), monitoring.CreateSessionRequest{
		DriverID:   "driver-1",
		OperatorID: "op-1",
		Thresholds: &monitoring.ThresholdOverrides{YawnConsecFrames: &frames},
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if session.Config.YawnConsecFrames != 5 {
		t.Errorf("Expected yawn frames 5, got %d", session.Config.YawnConsecFrames)
	}
	if session.Config.EyeARConsecFrames != 20 {
		t.Errorf("Expected default eye frames 20, got %d", session.Config.EyeARConsecFrames)
	}
	if _, ok := f.store.sessions[session.ID]; !ok {
		t.Error("Expected session row to be stored")
	}
}

func TestStartSessionRejectsInvalidThresholds(t *testing.T) {
	f := newFixture(t)
	zero := 0

	_, err := f.svc.StartSession(context.Background(), monitoring.CreateSessionRequest{
		DriverID:   "driver-1",
		OperatorID: "op-1",
		Thresholds: &monitoring.ThresholdOverrides{BlinkInterval: &zero},
	})
	if !errors.Is(err, drowsiness.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
	if len(f.store.sessions) != 0 {
		t.Error("Expected nothing stored")
	}
}

func TestStartSessionDatabaseFailure(t *testing.T) {
	f := newFixture(t)
	f.store.failNew = true

	_, err := f.svc.StartSession(context.Background(), monitoring.CreateSessionRequest{DriverID: "d", OperatorID: "op"})
	if !errors.Is(err, monitoring.ErrCreateSession) {
		t.Errorf("Expected ErrCreateSession, got %v", err)
	}
}

func TestAnalyzeFrameAlertPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	// mouth wide open, eyes open: yawning from the 15th frame
	var resp monitoring.AnalysisResponse
	var err error
	for i := 1; i <= 15; i++ {
		resp, err = f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{
			FaceDetected: true,
			Landmarks:    face(0.35, 0.8),
		})
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if i < 15 && resp.Status != drowsiness.StatusAlert {
			t.Fatalf("frame %d: expected Alert, got %q", i, resp.Status)
		}
	}

	if resp.Status != drowsiness.StatusYawning || !resp.IsDrowsy {
		t.Fatalf("Expected yawning, got %+v", resp)
	}
	if resp.FrameNumber != 15 {
		t.Errorf("Expected frame number 15, got %d", resp.FrameNumber)
	}
	if resp.Alert == nil || resp.Alert.Message != alert.MessageFor(drowsiness.StatusYawning) {
		t.Fatalf("Expected yawning alert, got %+v", resp.Alert)
	}

	// still drowsy, still inside the cooldown
	resp, _ = f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: true, Landmarks: face(0.35, 0.8)})
	if resp.Alert != nil {
		t.Error("Expected the next alert to be suppressed by the cooldown")
	}

	if len(f.sink.sent) != 1 {
		t.Errorf("Expected 1 alert sent, got %d", len(f.sink.sent))
	}
	if len(f.store.events) != 1 {
		t.Fatalf("Expected 1 event stored, got %d", len(f.store.events))
	}
	event := f.store.events[0]
	if event.Status != string(drowsiness.StatusYawning) || event.FrameNumber != 15 {
		t.Errorf("Unexpected event %+v", event)
	}
	if event.AudioLink == "" {
		t.Error("Expected audio link set by the sink to be stored")
	}

	f.clock.Advance(alert.DefaultCooldown)
	resp, _ = f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: true, Landmarks: face(0.35, 0.8)})
	if resp.Alert == nil {
		t.Error("Expected a new alert after the cooldown")
	}
}

func TestAnalyzeFrameNoFaceResets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	for i := 0; i < 10; i++ {
		f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: true, Landmarks: face(0.35, 0.8)})
	}

	// landmarks are ignored when no face was detected
	resp, err := f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: false, Landmarks: face(0.35, 0.8)})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Status != drowsiness.StatusNoFace || resp.Features != nil {
		t.Errorf("Expected no-face result, got %+v", resp)
	}

	snap, err := f.svc.GetSnapshot(ctx, "op-1", session.ID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap.State.Counters != (drowsiness.Counters{}) {
		t.Errorf("Expected zero counters, got %+v", snap.State.Counters)
	}
	if snap.FramesProcessed != 11 {
		t.Errorf("Expected 11 frames, got %d", snap.FramesProcessed)
	}
}

func TestAnalyzeFrameMalformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	_, err := f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{
		FaceDetected: true,
		Landmarks:    make(drowsiness.Landmarks, 10),
	})
	if !errors.Is(err, drowsiness.ErrMalformedLandmarks) {
		t.Errorf("Expected ErrMalformedLandmarks, got %v", err)
	}

	snap, _ := f.svc.GetSnapshot(ctx, "op-1", session.ID)
	if snap.FramesProcessed != 0 {
		t.Errorf("Expected malformed frame not counted, got %d", snap.FramesProcessed)
	}
}

func TestSessionOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	if _, err := f.svc.GetSnapshot(ctx, "op-2", session.ID); !errors.Is(err, monitoring.ErrSessionNotOwned) {
		t.Errorf("Expected ErrSessionNotOwned, got %v", err)
	}
	if _, err := f.svc.GetSnapshot(ctx, "op-1", "missing"); !errors.Is(err, monitoring.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
	if err := f.svc.EndSession(ctx, "op-2", session.ID); !errors.Is(err, monitoring.ErrSessionNotOwned) {
		t.Errorf("Expected ErrSessionNotOwned, got %v", err)
	}
}

func TestSnapshotReportsCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	for i := 0; i < 15; i++ {
		f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: true, Landmarks: face(0.35, 0.8)})
	}
	f.clock.Advance(2 * time.Second)

	snap, err := f.svc.GetSnapshot(ctx, "op-1", session.ID)
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap.LastStatus != drowsiness.StatusYawning || !snap.IsDrowsy {
		t.Errorf("Expected yawning snapshot, got %+v", snap)
	}
	if snap.CooldownRemainingMs != 3000 {
		t.Errorf("Expected 3000ms cooldown, got %d", snap.CooldownRemainingMs)
	}
}

func TestResetSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	for i := 0; i < 5; i++ {
		f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: true, Landmarks: face(0.1, 0.1)})
	}

	if err := f.svc.ResetSession(ctx, "op-1", session.ID); err != nil {
		t.Fatalf("ResetSession failed: %v", err)
	}

	snap, _ := f.svc.GetSnapshot(ctx, "op-1", session.ID)
	if snap.State.Counters != (drowsiness.Counters{}) || len(snap.State.BlinkWindow) != 0 {
		t.Errorf("Expected empty state, got %+v", snap.State)
	}
	if snap.LastStatus != drowsiness.StatusNoFace {
		t.Errorf("Expected last status No Face Detected, got %q", snap.LastStatus)
	}
}

func TestAnalyzeImageUsesProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	f.provider.result = &entity.LandmarkResult{FaceDetected: true, Landmarks: face(0.35, 0.1)}
	resp, err := f.svc.AnalyzeImage(ctx, "op-1", session.ID, []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Status != drowsiness.StatusAlert {
		t.Errorf("Expected Alert, got %q", resp.Status)
	}

	if _, err := f.svc.AnalyzeImage(ctx, "op-1", session.ID, nil); !errors.Is(err, monitoring.ErrEmptyFrame) {
		t.Errorf("Expected ErrEmptyFrame, got %v", err)
	}

	f.provider.err = errors.New("connection refused")
	if _, err := f.svc.AnalyzeImage(ctx, "op-1", session.ID, []byte{1}); !errors.Is(err, monitoring.ErrProviderUnavailable) {
		t.Errorf("Expected ErrProviderUnavailable, got %v", err)
	}
	if f.provider.calls != 2 {
		t.Errorf("Expected 2 provider calls, got %d", f.provider.calls)
	}
}

func TestEndSessionAndListEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.start(t, "op-1")

	for i := 0; i < 15; i++ {
		f.svc.AnalyzeFrame(ctx, "op-1", session.ID, monitoring.FrameRequest{FaceDetected: true, Landmarks: face(0.35, 0.8)})
	}

	if err := f.svc.EndSession(ctx, "op-1", session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if f.store.sessions[session.ID].EndedAt == nil {
		t.Error("Expected session row marked ended")
	}
	if _, err := f.svc.GetSnapshot(ctx, "op-1", session.ID); !errors.Is(err, monitoring.ErrSessionNotFound) {
		t.Errorf("Expected ended session to be gone, got %v", err)
	}

	events, err := f.svc.ListEvents(ctx, "op-1", session.ID, 0)
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].Status != string(drowsiness.StatusYawning) {
		t.Errorf("Expected one yawning event, got %+v", events)
	}

	if _, err := f.svc.ListEvents(ctx, "op-2", session.ID, 10); !errors.Is(err, monitoring.ErrSessionNotOwned) {
		t.Errorf("Expected ErrSessionNotOwned, got %v", err)
	}
	if _, err := f.svc.ListEvents(ctx, "op-1", "missing", 10); !errors.Is(err, monitoring.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestShutdownEndsAllSessions(t *testing.T) {
	f := newFixture(t)
	a := f.start(t, "op-1")
	b := f.start(t, "op-2")

	f.svc.Shutdown(context.Background())

	for _, id := range []string{a.ID, b.ID} {
		if f.store.sessions[id].EndedAt == nil {
			t.Errorf("Expected session %s ended", id)
		}
	}
	if _, err := f.svc.GetSnapshot(context.Background(), "op-1", a.ID); !errors.Is(err, monitoring.ErrSessionNotFound) {
		t.Errorf("Expected session removed, got %v", err)
	}
}
