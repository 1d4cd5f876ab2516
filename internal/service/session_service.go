package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"onboarding/internal/apierr"
	"onboarding/internal/logger"
	"onboarding/internal/progression"
	"onboarding/internal/repository"
	"onboarding/internal/stage"

	"github.com/google/uuid"
)

type SubmitQuizRequest struct {
	// Answers maps question id to the chosen option id
	Answers map[string]string `json:"answers" binding:"required"`
}

type SessionResponse struct {
	ID          string                  `json:"id"`
	ModuleID    string                  `json:"module_id"`
	Title       string                  `json:"title"`
	State       stage.State             `json:"state"`
	Attempts    int                     `json:"attempts"`
	MaxAttempts int                     `json:"max_attempts"`
	VideoURL    string                  `json:"video_url,omitempty"`
	Questions   []QuestionView          `json:"questions"`
	LastResult  *stage.QuizResult       `json:"last_result,omitempty"`
	Completion  *CompleteModuleResponse `json:"completion,omitempty"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

type SessionService interface {
	Start(ctx context.Context, employeeID uuid.UUID, moduleID string) (*SessionResponse, error)
	Get(ctx context.Context, employeeID uuid.UUID, sessionID string) (*SessionResponse, error)
	FinishVideo(ctx context.Context, employeeID uuid.UUID, sessionID string) (*SessionResponse, error)
	SubmitQuiz(ctx context.Context, employeeID uuid.UUID, sessionID string, answers map[string]string) (*SessionResponse, error)
	Retry(ctx context.Context, employeeID uuid.UUID, sessionID string) (*SessionResponse, error)
	Sweep(now time.Time) int
	RunSweeper(ctx context.Context, interval time.Duration)
}

// session is one live attempt at a module; mu serializes events on it
type session struct {
	mu         sync.Mutex
	id         string
	employeeID uuid.UUID
	ctrl       *stage.Controller
	lastResult *stage.QuizResult
	completion *CompleteModuleResponse
	expiresAt  atomic.Int64 // unix nanos; read by the sweeper without mu
}

func (s *session) expiry() time.Time { return time.Unix(0, s.expiresAt.Load()) }

func (s *session) touch(until time.Time) { s.expiresAt.Store(until.UnixNano()) }

type sessionService struct {
	employeeRepo repository.EmployeeRepository
	moduleRepo   repository.ModuleRepository
	progress     ProgressService
	policy       stage.Policy
	ttl          time.Duration
	now          func() time.Time
	log          *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewSessionService(
	employeeRepo repository.EmployeeRepository,
	moduleRepo repository.ModuleRepository,
	progress ProgressService,
	policy stage.Policy,
	ttl time.Duration,
	log *logger.Logger,
) SessionService {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &sessionService{
		employeeRepo: employeeRepo,
		moduleRepo:   moduleRepo,
		progress:     progress,
		policy:       policy.Normalized(),
		ttl:          ttl,
		now:          time.Now,
		log:          log.With("service", "SessionService"),
		sessions:     make(map[string]*session),
	}
}

// Start opens a session on a visible, unlocked module. A module with neither video
// nor quiz completes on the spot.
func (s *sessionService) Start(ctx context.Context, employeeID uuid.UUID, moduleID string) (*SessionResponse, error) {
	employee, catalog, err := loadEmployeeAndCatalog(ctx, s.employeeRepo, s.moduleRepo, employeeID)
	if err != nil {
		return nil, err
	}
	if employee.IsBlocked {
		return nil, apierr.New(http.StatusForbidden, apierr.CodeUserBlocked, errors.New("employee is blocked"))
	}

	views := progression.VisibleModules(progression.FromEmployee(employee), catalog)
	view, ok := progression.Find(views, moduleID)
	if !ok {
		return nil, progressionError(progression.ErrModuleNotVisible)
	}
	if view.IsLocked {
		return nil, progressionError(progression.ErrModuleLocked)
	}

	sess := &session{
		id:         uuid.NewString(),
		employeeID: employeeID,
		ctrl:       stage.New(view.Module, s.policy),
	}
	sess.touch(s.now().Add(s.ttl))

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := s.settle(ctx, sess); err != nil {
		// the caller never learns the id, so nothing could resume it
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		return nil, err
	}
	return s.view(sess), nil
}

func (s *sessionService) Get(ctx context.Context, employeeID uuid.UUID, sessionID string) (*SessionResponse, error) {
	return s.apply(ctx, employeeID, sessionID, func(*session) error { return nil })
}

func (s *sessionService) FinishVideo(ctx context.Context, employeeID uuid.UUID, sessionID string) (*SessionResponse, error) {
	return s.apply(ctx, employeeID, sessionID, func(sess *session) error {
		return sess.ctrl.FinishVideo()
	})
}

func (s *sessionService) SubmitQuiz(ctx context.Context, employeeID uuid.UUID, sessionID string, answers map[string]string) (*SessionResponse, error) {
	return s.apply(ctx, employeeID, sessionID, func(sess *session) error {
		res, err := sess.ctrl.SubmitQuiz(answers)
		if err != nil {
			return err
		}
		sess.lastResult = &res
		return nil
	})
}

func (s *sessionService) Retry(ctx context.Context, employeeID uuid.UUID, sessionID string) (*SessionResponse, error) {
	return s.apply(ctx, employeeID, sessionID, func(sess *session) error {
		return sess.ctrl.Retry()
	})
}

// Sweep evicts expired sessions and returns how many were removed
func (s *sessionService) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.expiry()) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *sessionService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.log.Debug("evicted expired sessions", "count", n)
			}
		}
	}
}

func (s *sessionService) apply(ctx context.Context, employeeID uuid.UUID, sessionID string, event func(*session) error) (*SessionResponse, error) {
	sess, err := s.lookup(employeeID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := event(sess); err != nil {
		if errors.Is(err, stage.ErrInvalidTransition) {
			return nil, apierr.New(http.StatusConflict, apierr.CodeInvalidState, err)
		}
		return nil, err
	}
	sess.touch(s.now().Add(s.ttl))

	if err := s.settle(ctx, sess); err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

// settle persists the completion once the controller reaches completed. A failed
// write is retried on the next call for the same session.
func (s *sessionService) settle(ctx context.Context, sess *session) error {
	if !sess.ctrl.Completed() || sess.completion != nil {
		return nil
	}
	res, err := s.progress.completeModule(ctx, sess.employeeID, sess.ctrl.Module().ID)
	if err != nil {
		return fmt.Errorf("failed to complete module: %w", err)
	}
	sess.completion = res
	return nil
}

func (s *sessionService) lookup(employeeID uuid.UUID, sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok || sess.employeeID != employeeID || s.now().After(sess.expiry()) {
		return nil, apierr.NotFound("session not found")
	}
	return sess, nil
}

func (s *sessionService) view(sess *session) *SessionResponse {
	module := sess.ctrl.Module()
	return &SessionResponse{
		ID:          sess.id,
		ModuleID:    module.ID,
		Title:       module.Title,
		State:       sess.ctrl.State(),
		Attempts:    sess.ctrl.Attempts(),
		MaxAttempts: s.policy.MaxAttempts,
		VideoURL:    module.VideoURL,
		Questions:   publicQuestions(module.Questions),
		LastResult:  sess.lastResult,
		Completion:  sess.completion,
		ExpiresAt:   sess.expiry(),
	}
}
