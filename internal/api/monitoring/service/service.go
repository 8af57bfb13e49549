package monitoringService

import (
	"DrowsinessMonitor/internal/api/monitoring"
	monitoringRepository "DrowsinessMonitor/internal/api/monitoring/repository"
	"DrowsinessMonitor/internal/entity"
	"DrowsinessMonitor/pkg/alert"
	"DrowsinessMonitor/pkg/drowsiness"
	"DrowsinessMonitor/pkg/utils"
	websocketPkg "DrowsinessMonitor/pkg/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"sync"
	"time"
)

type IMonitoringService interface {
	StartSession(ctx context.Context, req monitoring.CreateSessionRequest) (entity.MonitoringSession, error)
	GetSnapshot(ctx context.Context, operatorID, sessionID string) (monitoring.SessionSnapshot, error)
	AnalyzeFrame(ctx context.Context, operatorID, sessionID string, frame monitoring.FrameRequest) (monitoring.AnalysisResponse, error)
	AnalyzeImage(ctx context.Context, operatorID, sessionID string, image []byte) (monitoring.AnalysisResponse, error)
	ResetSession(ctx context.Context, operatorID, sessionID string) error
	EndSession(ctx context.Context, operatorID, sessionID string) error
	ListEvents(ctx context.Context, operatorID, sessionID string, limit int) ([]entity.AlertEvent, error)
	Shutdown(ctx context.Context)
}

// liveSession owns one analyzer. mu serialises frames of the session so the
// analyzer sees them in arrival order.
type liveSession struct {
	mu       sync.Mutex
	info     entity.MonitoringSession
	analyzer *drowsiness.Analyzer
	frames   int64
	last     drowsiness.Result
	lastAt   time.Time
}

type monitoringService struct {
	log        *logrus.Logger
	repository monitoringRepository.Repository
	provider   websocketPkg.ILandmarkProvider
	notifier   alert.INotifier
	utils      utils.IUtils
	defaults   drowsiness.Config

	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewMonitoringService wires the session registry. provider may be nil, in
// which case raw image frames are rejected.
func NewMonitoringService(
	log *logrus.Logger,
	repository monitoringRepository.Repository,
	provider websocketPkg.ILandmarkProvider,
	notifier alert.INotifier,
	utils utils.IUtils,
	defaults drowsiness.Config,
) IMonitoringService {
	return &monitoringService{
		log:        log,
		repository: repository,
		provider:   provider,
		notifier:   notifier,
		utils:      utils,
		defaults:   defaults,
		sessions:   make(map[string]*liveSession),
	}
}
