package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/repository"
)

// record is the mutable lifecycle portion shared by both job kinds.
type record struct {
	ownerID       string
	correlationID *string
	status        domain.JobStatus
	resultRef     *string
	failureReason *domain.FailureReason
	errorMessage  *string
	updatedAt     time.Time
	completedAt   *time.Time
}

// store is an in-memory job table with the same conditional-write semantics as postgres.
type store struct {
	mu      sync.RWMutex
	kind    domain.JobKind
	records map[uuid.UUID]*record
	byCorr  map[string]uuid.UUID

	// Hook functions for injecting errors
	SetCorrelationIDFunc     func(ctx context.Context, id uuid.UUID, correlationID string) error
	MarkSubmissionFailedFunc func(ctx context.Context, id uuid.UUID, t domain.Transition) (bool, error)
	ApplyTransitionFunc      func(ctx context.Context, correlationID string, t domain.Transition) (*domain.JobState, error)
	FindByCorrelationIDFunc  func(ctx context.Context, correlationID string) (*domain.JobState, error)
}

func newStore(kind domain.JobKind) *store {
	return &store{
		kind:    kind,
		records: make(map[uuid.UUID]*record),
		byCorr:  make(map[string]uuid.UUID),
	}
}

func (s *store) SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error {
	if s.SetCorrelationIDFunc != nil {
		return s.SetCorrelationIDFunc(ctx, id, correlationID)
	}
	// pgx fails a query on a done context before it reaches the server.
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.correlationID != nil || rec.status != domain.StatusPending {
		return domain.ErrTransitionConflict
	}
	if _, taken := s.byCorr[correlationID]; taken {
		return domain.ErrTransitionConflict
	}
	c := correlationID
	rec.correlationID = &c
	rec.updatedAt = time.Now().UTC()
	s.byCorr[correlationID] = id
	return nil
}

func (s *store) MarkSubmissionFailed(ctx context.Context, id uuid.UUID, t domain.Transition) (bool, error) {
	if s.MarkSubmissionFailedFunc != nil {
		return s.MarkSubmissionFailedFunc(ctx, id, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok || rec.correlationID != nil || rec.status != domain.StatusPending {
		return false, nil
	}
	rec.apply(t)
	return true, nil
}

func (s *store) ApplyTransition(ctx context.Context, correlationID string, t domain.Transition) (*domain.JobState, error) {
	if s.ApplyTransitionFunc != nil {
		return s.ApplyTransitionFunc(ctx, correlationID, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCorr[correlationID]
	if !ok {
		return nil, nil
	}
	rec := s.records[id]
	if rec.status != domain.StatusPending {
		return nil, nil
	}
	rec.apply(t)
	return s.state(id, rec), nil
}

func (s *store) FindByCorrelationID(ctx context.Context, correlationID string) (*domain.JobState, error) {
	if s.FindByCorrelationIDFunc != nil {
		return s.FindByCorrelationIDFunc(ctx, correlationID)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byCorr[correlationID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return s.state(id, s.records[id]), nil
}

func (s *store) insert(id uuid.UUID, ownerID string) *record {
	rec := &record{ownerID: ownerID, status: domain.StatusPending, updatedAt: time.Now().UTC()}
	s.records[id] = rec
	return rec
}

func (s *store) state(id uuid.UUID, rec *record) *domain.JobState {
	return &domain.JobState{
		ID:        id,
		Kind:      s.kind,
		OwnerID:   rec.ownerID,
		Status:    rec.status,
		ResultRef: rec.resultRef,
	}
}

func (r *record) apply(t domain.Transition) {
	now := time.Now().UTC()
	r.status = t.Status
	r.resultRef = t.ResultRef
	r.failureReason = t.FailureReason
	r.errorMessage = t.ErrorMessage
	r.updatedAt = now
	r.completedAt = &now
}

// ---- TrainingRepository mock ----

var _ repository.TrainingRepository = (*TrainingRepository)(nil)

// TrainingRepository is an in-memory mock of the training job repository for testing.
type TrainingRepository struct {
	*store
	jobs map[uuid.UUID]*domain.TrainingJob

	CreateFunc  func(ctx context.Context, job *domain.TrainingJob) error
	GetByIDFunc func(ctx context.Context, ownerID string, id uuid.UUID) (*domain.TrainingJob, error)
}

// NewTrainingRepository creates a new mock training repository.
func NewTrainingRepository() *TrainingRepository {
	return &TrainingRepository{
		store: newStore(domain.KindTraining),
		jobs:  make(map[uuid.UUID]*domain.TrainingJob),
	}
}

func (m *TrainingRepository) Create(ctx context.Context, job *domain.TrainingJob) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	cp := *job
	m.jobs[job.ID] = &cp
	m.insert(job.ID, job.OwnerID)
	return nil
}

func (m *TrainingRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.TrainingJob, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, ownerID, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok || job.OwnerID != ownerID {
		return nil, domain.ErrJobNotFound
	}
	return m.view(job), nil
}

func (m *TrainingRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.TrainingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.TrainingJob
	for _, job := range m.jobs {
		if job.OwnerID == ownerID {
			out = append(out, m.view(job))
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
	return out, nil
}

// Put stores a job as-is, bypassing the lifecycle. Used to seed fixtures.
func (m *TrainingRepository) Put(job *domain.TrainingJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	rec := m.insert(job.ID, job.OwnerID)
	rec.status = job.Status
	rec.resultRef = job.ResultArtifactRef
	if job.CorrelationID != nil {
		rec.correlationID = job.CorrelationID
		m.byCorr[*job.CorrelationID] = job.ID
	}
}

// GetAll returns all stored jobs (for test assertions).
func (m *TrainingRepository) GetAll() []*domain.TrainingJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.TrainingJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		result = append(result, m.view(j))
	}
	return result
}

func (m *TrainingRepository) view(job *domain.TrainingJob) *domain.TrainingJob {
	cp := *job
	rec := m.records[job.ID]
	cp.CorrelationID = rec.correlationID
	cp.Status = rec.status
	cp.ResultArtifactRef = rec.resultRef
	cp.FailureReason = rec.failureReason
	cp.ErrorMessage = rec.errorMessage
	cp.UpdatedAt = rec.updatedAt
	cp.CompletedAt = rec.completedAt
	return &cp
}

// ---- GenerationRepository mock ----

var _ repository.GenerationRepository = (*GenerationRepository)(nil)

// GenerationRepository is an in-memory mock of the generation job repository for testing.
type GenerationRepository struct {
	*store
	jobs map[uuid.UUID]*domain.GenerationJob

	CreateFunc func(ctx context.Context, job *domain.GenerationJob) error
	ListFunc   func(ctx context.Context, ownerID string, filter domain.ImageFilter) ([]*domain.GenerationJob, error)
}

// NewGenerationRepository creates a new mock generation repository.
func NewGenerationRepository() *GenerationRepository {
	return &GenerationRepository{
		store: newStore(domain.KindGeneration),
		jobs:  make(map[uuid.UUID]*domain.GenerationJob),
	}
}

func (m *GenerationRepository) Create(ctx context.Context, job *domain.GenerationJob) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	cp := *job
	m.jobs[job.ID] = &cp
	m.insert(job.ID, job.OwnerID)
	return nil
}

func (m *GenerationRepository) GetByID(ctx context.Context, ownerID string, id uuid.UUID) (*domain.GenerationJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok || job.OwnerID != ownerID {
		return nil, domain.ErrJobNotFound
	}
	return m.view(job), nil
}

func (m *GenerationRepository) List(ctx context.Context, ownerID string, filter domain.ImageFilter) ([]*domain.GenerationJob, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ownerID, filter)
	}
	filter = filter.Normalize()
	wanted := make(map[uuid.UUID]bool, len(filter.IDs))
	for _, id := range filter.IDs {
		wanted[id] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []*domain.GenerationJob
	for _, job := range m.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if len(wanted) > 0 && !wanted[job.ID] {
			continue
		}
		matched = append(matched, m.view(job))
	}
	sort.Slice(matched, func(i, j int) bool {
		return newerFirst(matched[i].CreatedAt, matched[j].CreatedAt, matched[i].ID, matched[j].ID)
	})

	if filter.Offset >= len(matched) {
		return []*domain.GenerationJob{}, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], nil
}

// Put stores a job as-is, bypassing the lifecycle. Used to seed fixtures.
func (m *GenerationRepository) Put(job *domain.GenerationJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	rec := m.insert(job.ID, job.OwnerID)
	rec.status = job.Status
	rec.resultRef = job.ResultImageRef
	if job.CorrelationID != nil {
		rec.correlationID = job.CorrelationID
		m.byCorr[*job.CorrelationID] = job.ID
	}
}

// GetAll returns all stored jobs (for test assertions).
func (m *GenerationRepository) GetAll() []*domain.GenerationJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.GenerationJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		result = append(result, m.view(j))
	}
	return result
}

func (m *GenerationRepository) view(job *domain.GenerationJob) *domain.GenerationJob {
	cp := *job
	rec := m.records[job.ID]
	cp.CorrelationID = rec.correlationID
	cp.Status = rec.status
	cp.ResultImageRef = rec.resultRef
	cp.FailureReason = rec.failureReason
	cp.ErrorMessage = rec.errorMessage
	cp.UpdatedAt = rec.updatedAt
	cp.CompletedAt = rec.completedAt
	return &cp
}

func newerFirst(a, b time.Time, aID, bID uuid.UUID) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID.String() > bID.String()
}
