package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Harsh-BH/Lumina/internal/domain"
	"github.com/Harsh-BH/Lumina/internal/provider"
	mockprov "github.com/Harsh-BH/Lumina/internal/provider/mock"
	mockpub "github.com/Harsh-BH/Lumina/internal/publisher/mock"
	mockrepo "github.com/Harsh-BH/Lumina/internal/repository/mock"
)

var (
	alice = domain.Caller{OwnerID: "alice"}
	bob   = domain.Caller{OwnerID: "bob"}
)

func validTrainingInput() domain.TrainingInput {
	return domain.TrainingInput{
		Attributes: domain.TrainingAttributes{
			Name:      "me",
			Type:      domain.TypeMan,
			Age:       20,
			Ethnicity: domain.EthnicityWhite,
			EyeColor:  domain.EyeBrown,
		},
		SourceArtifactRef: "https://bucket.example.com/uploads/me.zip",
	}
}

// seedModel stores a training job for owner in the given state.
func seedModel(repo *mockrepo.TrainingRepository, owner string, status domain.JobStatus) *domain.TrainingJob {
	job := &domain.TrainingJob{
		ID:                uuid.Must(uuid.NewV7()),
		OwnerID:           owner,
		Attributes:        validTrainingInput().Attributes,
		SourceArtifactRef: "https://bucket.example.com/uploads/me.zip",
		Status:            status,
	}
	if status == domain.StatusCompleted {
		ref := "https://fal.media/files/lora-" + job.ID.String() + ".safetensors"
		job.ResultArtifactRef = &ref
	}
	repo.Put(job)
	return job
}

// ---- Submission ----

func TestSubmitTraining_StoresCorrelationID(t *testing.T) {
	repo := mockrepo.NewTrainingRepository()
	gw := mockprov.NewProvider()
	uc := NewSubmitTrainingUsecase(repo, gw, zap.NewNop())

	resp, err := uc.Execute(context.Background(), alice, validTrainingInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != domain.StatusPending {
		t.Errorf("expected status PENDING, got %s", resp.Status)
	}

	job, err := repo.GetByID(context.Background(), "alice", resp.JobID)
	if err != nil {
		t.Fatalf("expected job in repo: %v", err)
	}
	if job.CorrelationID == nil || *job.CorrelationID != "corr-1" {
		t.Errorf("expected correlation id corr-1, got %v", job.CorrelationID)
	}
	if job.Status != domain.StatusPending {
		t.Errorf("expected PENDING, got %s", job.Status)
	}
	if len(gw.TrainingCalls) != 1 || gw.TrainingCalls[0].TriggerWord != "me" {
		t.Errorf("expected one training call with trigger word, got %+v", gw.TrainingCalls)
	}
}

func TestSubmitTraining_ValidationCreatesNothing(t *testing.T) {
	repo := mockrepo.NewTrainingRepository()
	gw := mockprov.NewProvider()
	uc := NewSubmitTrainingUsecase(repo, gw, zap.NewNop())

	in := validTrainingInput()
	in.Attributes.EyeColor = "Purple"

	_, err := uc.Execute(context.Background(), alice, in)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "eye_color" {
		t.Fatalf("expected eye_color validation error, got %v", err)
	}
	if !errors.Is(err, domain.ErrValidation) {
		t.Error("expected ErrValidation in chain")
	}
	if len(repo.GetAll()) != 0 {
		t.Error("expected no job to be created")
	}
	if gw.Calls() != 0 {
		t.Error("expected provider not to be called")
	}
}

func TestSubmitTraining_ProviderRejectedMarksFailed(t *testing.T) {
	repo := mockrepo.NewTrainingRepository()
	gw := mockprov.NewFailingProvider(&provider.RejectedError{StatusCode: 422, Reason: "zip has no images"})
	uc := NewSubmitTrainingUsecase(repo, gw, zap.NewNop())

	_, err := uc.Execute(context.Background(), alice, validTrainingInput())
	if !errors.Is(err, domain.ErrProviderRejected) {
		t.Fatalf("expected ErrProviderRejected, got %v", err)
	}

	jobs := repo.GetAll()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].Status != domain.StatusFailed {
		t.Errorf("expected FAILED, got %s", jobs[0].Status)
	}
	if jobs[0].FailureReason == nil || *jobs[0].FailureReason != domain.ReasonSubmissionRejected {
		t.Errorf("expected SUBMISSION_REJECTED, got %v", jobs[0].FailureReason)
	}
	if jobs[0].CorrelationID != nil {
		t.Error("expected no correlation id")
	}
}

func TestSubmitTraining_ProviderUnavailableMarksFailed(t *testing.T) {
	repo := mockrepo.NewTrainingRepository()
	gw := mockprov.NewFailingProvider(provider.Unavailable(context.DeadlineExceeded))
	uc := NewSubmitTrainingUsecase(repo, gw, zap.NewNop())

	_, err := uc.Execute(context.Background(), alice, validTrainingInput())
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	jobs := repo.GetAll()
	if len(jobs) != 1 || jobs[0].FailureReason == nil || *jobs[0].FailureReason != domain.ReasonSubmissionUnavailable {
		t.Fatalf("expected one job failed with SUBMISSION_UNAVAILABLE, got %+v", jobs)
	}
}

func TestSubmitTraining_CorrelationWriteFailureIsStoreUnavailable(t *testing.T) {
	repo := mockrepo.NewTrainingRepository()
	repo.SetCorrelationIDFunc = func(ctx context.Context, id uuid.UUID, correlationID string) error {
		return errors.New("postgres: connection reset")
	}
	uc := NewSubmitTrainingUsecase(repo, mockprov.NewProvider(), zap.NewNop())

	_, err := uc.Execute(context.Background(), alice, validTrainingInput())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestSubmitTraining_ClientGoneAfterAcceptStillCorrelates(t *testing.T) {
	repo := mockrepo.NewTrainingRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := mockprov.NewProvider()
	gw.SubmitTrainingFn = func(context.Context, provider.TrainingRequest) (string, error) {
		cancel()
		return "corr-1", nil
	}
	uc := NewSubmitTrainingUsecase(repo, gw, zap.NewNop())

	resp, err := uc.Execute(ctx, alice, validTrainingInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	job, err := repo.GetByID(context.Background(), "alice", resp.JobID)
	if err != nil {
		t.Fatalf("expected job in repo: %v", err)
	}
	if job.CorrelationID == nil || *job.CorrelationID != "corr-1" {
		t.Errorf("expected correlation id corr-1, got %v", job.CorrelationID)
	}
}

func TestSubmitGeneration_ModelNotReady(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	images := mockrepo.NewGenerationRepository()
	gw := mockprov.NewProvider()
	uc := NewSubmitGenerationUsecase(models, images, gw, zap.NewNop())

	pending := seedModel(models, "alice", domain.StatusPending)

	_, err := uc.Execute(context.Background(), alice, domain.GenerationInput{Prompt: "x", ModelRef: pending.ID})
	if !errors.Is(err, domain.ErrModelNotReady) {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
	if len(images.GetAll()) != 0 {
		t.Error("expected no generation job to be created")
	}
	if gw.Calls() != 0 {
		t.Error("expected provider not to be called")
	}
}

func TestSubmitGeneration_ForeignModelIsNotReady(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	images := mockrepo.NewGenerationRepository()
	uc := NewSubmitGenerationUsecase(models, images, mockprov.NewProvider(), zap.NewNop())

	bobs := seedModel(models, "bob", domain.StatusCompleted)

	_, err := uc.Execute(context.Background(), alice, domain.GenerationInput{Prompt: "x", ModelRef: bobs.ID})
	if !errors.Is(err, domain.ErrModelNotReady) {
		t.Errorf("expected ErrModelNotReady, got %v", err)
	}
}

func TestSubmitGeneration_UsesTrainedWeights(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	images := mockrepo.NewGenerationRepository()
	gw := mockprov.NewProvider()
	uc := NewSubmitGenerationUsecase(models, images, gw, zap.NewNop())

	model := seedModel(models, "alice", domain.StatusCompleted)

	resp, err := uc.Execute(context.Background(), alice, domain.GenerationInput{Prompt: " a cat ", ModelRef: model.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gw.GenerationCalls) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(gw.GenerationCalls))
	}
	if gw.GenerationCalls[0].ModelRef != *model.ResultArtifactRef {
		t.Errorf("expected LoRA path %s, got %s", *model.ResultArtifactRef, gw.GenerationCalls[0].ModelRef)
	}
	img, err := images.GetByID(context.Background(), "alice", resp.JobID)
	if err != nil {
		t.Fatalf("expected job: %v", err)
	}
	if img.Prompt != "a cat" || img.ModelRef != model.ID {
		t.Errorf("unexpected job %+v", img)
	}
}

// ---- Pack fan-out ----

func newPackUsecase(models *mockrepo.TrainingRepository, images *mockrepo.GenerationRepository, packs *mockrepo.PackRepository, gw provider.Gateway) *SubmitPackUsecase {
	gen := NewSubmitGenerationUsecase(models, images, gw, zap.NewNop())
	return NewSubmitPackUsecase(packs, gen, 2, zap.NewNop())
}

func TestSubmitPack_PartialFailure(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	images := mockrepo.NewGenerationRepository()
	packs := mockrepo.NewPackRepository()
	gw := mockprov.NewProvider()
	gw.SubmitGenerationFn = func(ctx context.Context, req provider.GenerationRequest) (string, error) {
		if req.Prompt == "p2" {
			return "", provider.Unavailable(errors.New("HTTP 503"))
		}
		return "corr-" + req.Prompt, nil
	}

	model := seedModel(models, "alice", domain.StatusCompleted)
	pack := packs.AddPack("cyberpunk", "p1", "p2", "p3")
	uc := newPackUsecase(models, images, packs, gw)

	res, err := uc.Execute(context.Background(), alice, &domain.PackGenerateRequest{PackID: pack.ID, ModelID: model.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.JobIDs) != 2 {
		t.Fatalf("expected 2 job ids, got %d", len(res.JobIDs))
	}
	if len(res.Failures) != 1 || res.Failures[0].Prompt != "p2" {
		t.Fatalf("expected a single failure for p2, got %+v", res.Failures)
	}
	if !errors.Is(res.Failures[0].Err, domain.ErrProviderUnavailable) {
		t.Errorf("expected failure to carry ErrProviderUnavailable, got %v", res.Failures[0].Err)
	}

	// Job ids follow template order.
	for i, want := range []string{"p1", "p3"} {
		job, err := images.GetByID(context.Background(), "alice", res.JobIDs[i])
		if err != nil {
			t.Fatalf("job %d: %v", i, err)
		}
		if job.Prompt != want {
			t.Errorf("job %d: expected prompt %s, got %s", i, want, job.Prompt)
		}
		if job.PackID == nil || *job.PackID != pack.ID {
			t.Errorf("job %d: expected pack id", i)
		}
	}
}

func TestSubmitPack_UnknownPack(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	model := seedModel(models, "alice", domain.StatusCompleted)
	uc := newPackUsecase(models, mockrepo.NewGenerationRepository(), mockrepo.NewPackRepository(), mockprov.NewProvider())

	_, err := uc.Execute(context.Background(), alice, &domain.PackGenerateRequest{PackID: uuid.New(), ModelID: model.ID})
	if !errors.Is(err, domain.ErrPackNotFound) {
		t.Errorf("expected ErrPackNotFound, got %v", err)
	}
}

func TestSubmitPack_ModelNotReadyCreatesNothing(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	images := mockrepo.NewGenerationRepository()
	packs := mockrepo.NewPackRepository()
	gw := mockprov.NewProvider()

	model := seedModel(models, "alice", domain.StatusPending)
	pack := packs.AddPack("studio", "p1", "p2")
	uc := newPackUsecase(models, images, packs, gw)

	_, err := uc.Execute(context.Background(), alice, &domain.PackGenerateRequest{PackID: pack.ID, ModelID: model.ID})
	if !errors.Is(err, domain.ErrModelNotReady) {
		t.Fatalf("expected ErrModelNotReady, got %v", err)
	}
	if len(images.GetAll()) != 0 || gw.Calls() != 0 {
		t.Error("expected no jobs and no provider calls")
	}
}

func TestSubmitPack_AllFailed(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	packs := mockrepo.NewPackRepository()
	model := seedModel(models, "alice", domain.StatusCompleted)
	pack := packs.AddPack("studio", "p1", "p2")
	gw := mockprov.NewFailingProvider(provider.Unavailable(errors.New("down")))
	uc := newPackUsecase(models, mockrepo.NewGenerationRepository(), packs, gw)

	res, err := uc.Execute(context.Background(), alice, &domain.PackGenerateRequest{PackID: pack.ID, ModelID: model.ID})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if res == nil || len(res.Failures) != 2 || len(res.JobIDs) != 0 {
		t.Errorf("expected two failures and no jobs, got %+v", res)
	}
}

// ---- Webhook reconciliation ----

type reconcileFixture struct {
	models *mockrepo.TrainingRepository
	images *mockrepo.GenerationRepository
	pub    *mockpub.MockPublisher
	uc     *ReconcileWebhookUsecase
}

func newReconcileFixture() *reconcileFixture {
	f := &reconcileFixture{
		models: mockrepo.NewTrainingRepository(),
		images: mockrepo.NewGenerationRepository(),
		pub:    mockpub.NewMockPublisher(),
	}
	f.uc = NewReconcileWebhookUsecase(f.models, f.images, f.pub, zap.NewNop())
	return f
}

// submitAlicesModel runs a real training submission so the job holds corr-1.
func (f *reconcileFixture) submitAlicesModel(t *testing.T) uuid.UUID {
	t.Helper()
	uc := NewSubmitTrainingUsecase(f.models, mockprov.NewProvider(), zap.NewNop())
	resp, err := uc.Execute(context.Background(), alice, validTrainingInput())
	if err != nil {
		t.Fatalf("submit training: %v", err)
	}
	return resp.JobID
}

func trainCallback(corr string, outcome domain.Outcome, ref string) *domain.Callback {
	return &domain.Callback{Kind: domain.KindTraining, CorrelationID: corr, Outcome: outcome, ResultRef: ref}
}

func TestReconcile_TrainingLifecycle(t *testing.T) {
	f := newReconcileFixture()
	ctx := context.Background()
	jobID := f.submitAlicesModel(t)

	rec, err := f.uc.Execute(ctx, trainCallback("corr-1", domain.OutcomeSuccess, "s3://w.safetensors"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Result != domain.ReconcileApplied || rec.JobID != jobID {
		t.Fatalf("expected applied for %s, got %+v", jobID, rec)
	}

	job, _ := f.models.GetByID(ctx, "alice", jobID)
	if job.Status != domain.StatusCompleted || job.ResultArtifactRef == nil || *job.ResultArtifactRef != "s3://w.safetensors" {
		t.Fatalf("expected COMPLETED with weights, got %+v", job)
	}

	// Same callback again is a no-op.
	rec, err = f.uc.Execute(ctx, trainCallback("corr-1", domain.OutcomeSuccess, "s3://w.safetensors"))
	if err != nil || rec.Result != domain.ReconcileDuplicate {
		t.Fatalf("expected duplicate, got %+v, %v", rec, err)
	}

	// A contradicting callback never overwrites the first outcome.
	rec, err = f.uc.Execute(ctx, trainCallback("corr-1", domain.OutcomeFailure, ""))
	if err != nil || rec.Result != domain.ReconcileConflict {
		t.Fatalf("expected conflict, got %+v, %v", rec, err)
	}
	job, _ = f.models.GetByID(ctx, "alice", jobID)
	if job.Status != domain.StatusCompleted || *job.ResultArtifactRef != "s3://w.safetensors" {
		t.Errorf("expected stored outcome untouched, got %+v", job)
	}

	// Only the applied transition emits an event.
	events := f.pub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].JobID != jobID || events[0].Status != domain.StatusCompleted || events[0].OwnerID != "alice" {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestReconcile_DifferentResultRefIsConflict(t *testing.T) {
	f := newReconcileFixture()
	f.submitAlicesModel(t)
	ctx := context.Background()

	if _, err := f.uc.Execute(ctx, trainCallback("corr-1", domain.OutcomeSuccess, "s3://a")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec, err := f.uc.Execute(ctx, trainCallback("corr-1", domain.OutcomeSuccess, "s3://b"))
	if err != nil || rec.Result != domain.ReconcileConflict {
		t.Errorf("expected conflict, got %+v, %v", rec, err)
	}
}

func TestReconcile_UnmatchedCorrelationID(t *testing.T) {
	f := newReconcileFixture()
	f.submitAlicesModel(t)

	rec, err := f.uc.Execute(context.Background(), trainCallback("corr-999", domain.OutcomeSuccess, "s3://x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Result != domain.ReconcileUnmatched {
		t.Errorf("expected unmatched, got %s", rec.Result)
	}
	for _, job := range f.models.GetAll() {
		if job.Status != domain.StatusPending {
			t.Errorf("expected job %s untouched, got %s", job.ID, job.Status)
		}
	}
	if len(f.pub.Events()) != 0 {
		t.Error("expected no events")
	}
}

func TestReconcile_KindsDoNotShareCorrelationIDs(t *testing.T) {
	f := newReconcileFixture()
	trainingID := f.submitAlicesModel(t)

	rec, err := f.uc.Execute(context.Background(), &domain.Callback{
		Kind: domain.KindGeneration, CorrelationID: "corr-1", Outcome: domain.OutcomeSuccess, ResultRef: "https://img",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Result != domain.ReconcileUnmatched {
		t.Errorf("expected unmatched on the generation route, got %s", rec.Result)
	}
	job, _ := f.models.GetByID(context.Background(), "alice", trainingID)
	if job.Status != domain.StatusPending {
		t.Errorf("expected training job untouched, got %s", job.Status)
	}
}

func TestReconcile_SuccessWithoutResultRefIsRejected(t *testing.T) {
	f := newReconcileFixture()
	jobID := f.submitAlicesModel(t)

	_, err := f.uc.Execute(context.Background(), trainCallback("corr-1", domain.OutcomeSuccess, " "))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	job, _ := f.models.GetByID(context.Background(), "alice", jobID)
	if job.Status != domain.StatusPending {
		t.Errorf("expected no write, got %s", job.Status)
	}
}

func TestReconcile_FailureOutcome(t *testing.T) {
	f := newReconcileFixture()
	jobID := f.submitAlicesModel(t)

	cb := trainCallback("corr-1", domain.OutcomeFailure, "")
	cb.Error = "training diverged"
	rec, err := f.uc.Execute(context.Background(), cb)
	if err != nil || rec.Result != domain.ReconcileApplied {
		t.Fatalf("expected applied, got %+v, %v", rec, err)
	}
	job, _ := f.models.GetByID(context.Background(), "alice", jobID)
	if job.Status != domain.StatusFailed || job.ResultArtifactRef != nil {
		t.Errorf("expected FAILED without result, got %+v", job)
	}
	if job.FailureReason == nil || *job.FailureReason != domain.ReasonProviderFailed {
		t.Errorf("expected PROVIDER_FAILED, got %v", job.FailureReason)
	}
}

func TestReconcile_StoreFailureIsReported(t *testing.T) {
	f := newReconcileFixture()
	f.models.ApplyTransitionFunc = func(ctx context.Context, correlationID string, t domain.Transition) (*domain.JobState, error) {
		return nil, errors.New("postgres: apply transition: connection refused")
	}

	_, err := f.uc.Execute(context.Background(), trainCallback("corr-1", domain.OutcomeSuccess, "s3://x"))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestReconcile_StillPendingAfterMissedUpdateIsRetriable(t *testing.T) {
	f := newReconcileFixture()
	jobID := f.submitAlicesModel(t)
	applies := 0
	f.models.ApplyTransitionFunc = func(ctx context.Context, correlationID string, t domain.Transition) (*domain.JobState, error) {
		applies++
		return nil, nil
	}

	_, err := f.uc.Execute(context.Background(), trainCallback("corr-1", domain.OutcomeSuccess, "s3://x"))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if applies != 1 {
		t.Errorf("expected a single update attempt, got %d", applies)
	}
	job, _ := f.models.GetByID(context.Background(), "alice", jobID)
	if job.Status != domain.StatusPending {
		t.Errorf("expected job left PENDING for redelivery, got %s", job.Status)
	}
	if len(f.pub.Events()) != 0 {
		t.Error("expected no events")
	}
}

func TestReconcile_PublishFailureDoesNotFailCallback(t *testing.T) {
	f := newReconcileFixture()
	f.submitAlicesModel(t)
	f.pub.PublishFn = func(ctx context.Context, event *domain.JobEvent) error {
		return errors.New("rabbitmq: channel not available")
	}

	rec, err := f.uc.Execute(context.Background(), trainCallback("corr-1", domain.OutcomeSuccess, "s3://x"))
	if err != nil || rec.Result != domain.ReconcileApplied {
		t.Errorf("expected applied despite publish failure, got %+v, %v", rec, err)
	}
}

func TestReconcile_ConcurrentDuplicatesApplyOnce(t *testing.T) {
	f := newReconcileFixture()
	f.submitAlicesModel(t)

	const callers = 16
	results := make([]domain.ReconcileResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := f.uc.Execute(context.Background(), trainCallback("corr-1", domain.OutcomeSuccess, "s3://x"))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results[i] = rec.Result
		}()
	}
	wg.Wait()

	applied := 0
	for _, r := range results {
		switch r {
		case domain.ReconcileApplied:
			applied++
		case domain.ReconcileDuplicate:
		default:
			t.Errorf("unexpected result %s", r)
		}
	}
	if applied != 1 {
		t.Errorf("expected exactly one applied transition, got %d", applied)
	}
	if len(f.pub.Events()) != 1 {
		t.Errorf("expected exactly one event, got %d", len(f.pub.Events()))
	}
}

// ---- Query ----

func TestListImages_OwnerScopedAndBounded(t *testing.T) {
	models := mockrepo.NewTrainingRepository()
	images := mockrepo.NewGenerationRepository()
	gen := NewSubmitGenerationUsecase(models, images, mockprov.NewProvider(), zap.NewNop())
	q := NewQueryUsecase(models, images, mockrepo.NewPackRepository(), zap.NewNop())
	ctx := context.Background()

	aliceModel := seedModel(models, "alice", domain.StatusCompleted)
	bobModel := seedModel(models, "bob", domain.StatusCompleted)

	var aliceIDs []uuid.UUID
	for i := 0; i < 12; i++ {
		resp, err := gen.Execute(ctx, alice, domain.GenerationInput{Prompt: "a cat", ModelRef: aliceModel.ID})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		aliceIDs = append(aliceIDs, resp.JobID)
	}
	bobResp, err := gen.Execute(ctx, bob, domain.GenerationInput{Prompt: "a dog", ModelRef: bobModel.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	page, err := q.ListImages(ctx, alice, domain.ImageFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page) != domain.DefaultImageLimit {
		t.Errorf("expected default page of %d, got %d", domain.DefaultImageLimit, len(page))
	}
	for _, img := range page {
		if img.OwnerID != "alice" {
			t.Errorf("leaked image of %s", img.OwnerID)
		}
	}

	all, _ := q.ListImages(ctx, alice, domain.ImageFilter{Limit: 500})
	if len(all) != 12 {
		t.Errorf("expected 12 images with capped limit, got %d", len(all))
	}

	rest, _ := q.ListImages(ctx, alice, domain.ImageFilter{Offset: 10})
	if len(rest) != 2 {
		t.Errorf("expected 2 images after offset 10, got %d", len(rest))
	}

	// Asking for another owner's id by name still returns nothing.
	foreign, _ := q.ListImages(ctx, alice, domain.ImageFilter{IDs: []uuid.UUID{bobResp.JobID, aliceIDs[0]}})
	if len(foreign) != 1 || foreign[0].ID != aliceIDs[0] {
		t.Errorf("expected only alice's image, got %+v", foreign)
	}

	if _, err := q.GetImage(ctx, alice, bobResp.JobID); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound for foreign image, got %v", err)
	}
}

func TestImageFilter_Normalize(t *testing.T) {
	f := domain.ImageFilter{Limit: 0, Offset: -3}.Normalize()
	if f.Limit != domain.DefaultImageLimit || f.Offset != 0 {
		t.Errorf("unexpected defaults %+v", f)
	}
	f = domain.ImageFilter{Limit: 1000}.Normalize()
	if f.Limit != domain.MaxImageLimit {
		t.Errorf("expected limit capped at %d, got %d", domain.MaxImageLimit, f.Limit)
	}
}

// ---- Idempotency ----

func TestIdempotencyGuard_ReplaysFirstResult(t *testing.T) {
	keys := mockrepo.NewSubmissionKeys()
	g := NewIdempotencyGuard(keys, zap.NewNop())
	ctx := context.Background()
	first := uuid.New()

	calls := 0
	submit := func(context.Context) (*domain.Submission, error) {
		calls++
		return &domain.Submission{JobIDs: []uuid.UUID{first}}, nil
	}

	sub, replayed, err := g.Do(ctx, alice, "training", "key-1", submit)
	if err != nil || replayed || sub.JobIDs[0] != first {
		t.Fatalf("unexpected first call: %+v %v %v", sub, replayed, err)
	}
	sub, replayed, err = g.Do(ctx, alice, "training", "key-1", submit)
	if err != nil || !replayed || sub.JobIDs[0] != first {
		t.Fatalf("expected replay of %s, got %+v %v %v", first, sub, replayed, err)
	}
	if calls != 1 {
		t.Errorf("expected submit to run once, ran %d times", calls)
	}

	// Keys are scoped per caller.
	if _, replayed, _ := g.Do(ctx, bob, "training", "key-1", submit); replayed {
		t.Error("expected bob's key to be independent")
	}
}

func TestIdempotencyGuard_ReplaysPackFailures(t *testing.T) {
	keys := mockrepo.NewSubmissionKeys()
	g := NewIdempotencyGuard(keys, zap.NewNop())
	ctx := context.Background()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	failed := domain.PackFailure{PromptID: uuid.New(), Prompt: "rooftop", Error: "provider unavailable"}

	submit := func(context.Context) (*domain.Submission, error) {
		return &domain.Submission{JobIDs: ids, Failures: []domain.PackFailure{failed}}, nil
	}
	if _, _, err := g.Do(ctx, alice, "pack", "k", submit); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, replayed, err := g.Do(ctx, alice, "pack", "k", submit)
	if err != nil || !replayed {
		t.Fatalf("expected replay, got %v %v", replayed, err)
	}
	if len(sub.JobIDs) != 2 || sub.JobIDs[0] != ids[0] || sub.JobIDs[1] != ids[1] {
		t.Errorf("expected recorded job ids in order, got %v", sub.JobIDs)
	}
	if len(sub.Failures) != 1 || sub.Failures[0] != failed {
		t.Errorf("expected recorded failure, got %+v", sub.Failures)
	}
}

func TestIdempotencyGuard_KeyLengthInBytes(t *testing.T) {
	g := NewIdempotencyGuard(mockrepo.NewSubmissionKeys(), zap.NewNop())
	submit := func(context.Context) (*domain.Submission, error) {
		return &domain.Submission{JobIDs: []uuid.UUID{uuid.New()}}, nil
	}

	// 64 two-byte runes fill the limit exactly.
	if _, _, err := g.Do(context.Background(), alice, "training", strings.Repeat("é", 64), submit); err != nil {
		t.Errorf("expected 128-byte key to be accepted, got %v", err)
	}
	_, _, err := g.Do(context.Background(), alice, "training", strings.Repeat("é", 64)+"x", submit)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for 129-byte key, got %v", err)
	}
}

func TestIdempotencyGuard_InFlight(t *testing.T) {
	keys := mockrepo.NewSubmissionKeys()
	keys.ReserveFn = func(ctx context.Context, key string) (*domain.Submission, bool, error) {
		return nil, false, nil
	}
	g := NewIdempotencyGuard(keys, zap.NewNop())

	_, _, err := g.Do(context.Background(), alice, "generate", "k", func(context.Context) (*domain.Submission, error) {
		t.Fatal("submit must not run")
		return nil, nil
	})
	if !errors.Is(err, domain.ErrSubmissionInProgress) {
		t.Errorf("expected ErrSubmissionInProgress, got %v", err)
	}
}

func TestIdempotencyGuard_ReleasesOnFailure(t *testing.T) {
	keys := mockrepo.NewSubmissionKeys()
	g := NewIdempotencyGuard(keys, zap.NewNop())

	_, _, err := g.Do(context.Background(), alice, "generate", "k", func(context.Context) (*domain.Submission, error) {
		return nil, domain.ErrProviderUnavailable
	})
	if !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(keys.Released) != 1 {
		t.Errorf("expected key to be released, got %v", keys.Released)
	}
}

func TestIdempotencyGuard_NilGuardRunsSubmit(t *testing.T) {
	var g *IdempotencyGuard
	ran := false
	_, _, err := g.Do(context.Background(), alice, "training", "k", func(context.Context) (*domain.Submission, error) {
		ran = true
		return &domain.Submission{JobIDs: []uuid.UUID{uuid.New()}}, nil
	})
	if err != nil || !ran {
		t.Errorf("expected submit to run, err=%v", err)
	}
}
