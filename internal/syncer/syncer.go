// Package syncer keeps project code in step with its linked repository. Syncs
// run in the background, serialized per project, and every sync ends in a
// report.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/report"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/pkg/idgen"
	"github.com/verustcode/codesync/pkg/logger"
	"github.com/verustcode/codesync/pkg/telemetry"
)

const (
	defaultTimeout = 30 * time.Second
	defaultWorkers = 4
)

// Options configures a Syncer
type Options struct {
	// Timeout bounds each provider call
	Timeout time.Duration
	// QueueSize bounds the number of pending tasks; 0 is unbounded
	QueueSize int
	// Workers is the number of projects synced concurrently
	Workers int
}

// Syncer resolves sync requests and runs them through the project queue
type Syncer struct {
	store     store.Store
	providers *provider.Registry
	pipeline  *report.Pipeline
	queue     *ProjectQueue

	timeout time.Duration
	workers int
	now     func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	// resolveMu keeps concurrent webhooks from creating duplicate projects
	resolveMu sync.Mutex
}

// New creates a Syncer. Call Start before enqueueing work.
func New(s store.Store, providers *provider.Registry, pipeline *report.Pipeline, opts Options) *Syncer {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Syncer{
		store:     s,
		providers: providers,
		pipeline:  pipeline,
		queue:     NewProjectQueue(opts.QueueSize),
		timeout:   opts.Timeout,
		workers:   opts.Workers,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the dispatcher
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	s.wg.Add(1)
	go s.dispatch()

	logger.Info("Syncer started",
		zap.Int("workers", s.workers),
		zap.Duration("provider_timeout", s.timeout),
	)
}

// Stop rejects new tasks, fails pending ones with ErrStopped and waits for
// running syncs until ctx ends.
func (s *Syncer) Stop(ctx context.Context) error {
	s.queue.Stop()
	for _, t := range s.queue.Drain() {
		telemetry.GetMetrics().RecordSyncQueued(context.Background(), -1)
		t.complete(Result{Err: ErrStopped})
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Syncer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Queue exposes the underlying queue
func (s *Syncer) Queue() *ProjectQueue {
	return s.queue
}

func (s *Syncer) dispatch() {
	defer s.wg.Done()
	slots := make(chan struct{}, s.workers)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.queue.TaskReady():
		}

		for {
			select {
			case slots <- struct{}{}:
			case <-s.ctx.Done():
				return
			}
			task := s.queue.Dequeue()
			if task == nil {
				<-slots
				break
			}
			s.wg.Add(1)
			go func() {
				defer func() {
					<-slots
					s.wg.Done()
				}()
				s.process(task)
			}()
		}
	}
}

// Enqueue schedules a sync of projectID. branch may be empty.
func (s *Syncer) Enqueue(projectID uint, branch, trigger string) (*Task, error) {
	task := newTask(idgen.NewTaskID(), projectID, branch, trigger)
	if err := s.queue.Enqueue(task); err != nil {
		return nil, err
	}
	telemetry.GetMetrics().RecordSyncQueued(context.Background(), 1)
	return task, nil
}

// SyncProject checks that projectID can be synced and enqueues it
func (s *Syncer) SyncProject(ctx context.Context, projectID uint, branch, trigger string) (*Task, error) {
	project, err := s.store.Project().GetByID(projectID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if _, _, err := s.resolveCredential(project); err != nil {
		return nil, err
	}
	return s.Enqueue(project.ID, branch, trigger)
}

// HandleWebhook resolves the project a push event targets and enqueues its
// sync. Resolution failures are returned synchronously; the fetch and the
// report happen in the background.
func (s *Syncer) HandleWebhook(ctx context.Context, event *provider.WebhookEvent) (*Task, error) {
	project, err := s.ResolveWebhook(ctx, event)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.resolveCredential(project); err != nil {
		return nil, err
	}
	return s.Enqueue(project.ID, event.Branch, model.TriggerWebhook)
}

// ResolveWebhook finds the project linked to the event's repository. When
// none exists one is created for the sending user; an unknown sender fails
// with ErrUserNotFound and creates nothing.
func (s *Syncer) ResolveWebhook(ctx context.Context, event *provider.WebhookEvent) (*model.Project, error) {
	repoURL := provider.NormalizeURL(event.RepositoryURL)
	if _, err := s.providers.Resolve(repoURL); err != nil {
		return nil, err
	}

	s.resolveMu.Lock()
	defer s.resolveMu.Unlock()

	var (
		project *model.Project
		owner   *model.User
	)
	err := s.store.Transaction(func(tx store.Store) error {
		existing, err := tx.Project().GetByRepositoryURL(repoURL)
		if err == nil {
			project = existing
			return nil
		}
		if !store.IsNotFound(err) {
			return err
		}

		user, err := resolveSender(tx.User(), event.Senders)
		if err != nil {
			return err
		}
		created := &model.Project{
			Name:             path.Base(repoURL),
			GitRepositoryURL: repoURL,
			Branch:           event.Branch,
			UserID:           user.ID,
		}
		if err := tx.Project().Create(created); err != nil {
			return fmt.Errorf("create project for %s: %w", repoURL, err)
		}
		project, owner = created, user
		return nil
	})
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return project, nil
	}

	logger.Info("Created project from webhook",
		zap.Uint("project_id", project.ID),
		zap.String("repo_url", repoURL),
		zap.String("user", owner.Email),
	)
	return project, nil
}

// resolveSender returns the first sender with an account.
func resolveSender(users store.UserStore, senders []string) (*model.User, error) {
	for _, sender := range senders {
		// accounts are stored lower-case; providers report the address as typed
		sender = strings.ToLower(strings.TrimSpace(sender))
		if sender == "" {
			continue
		}
		user, err := users.GetByEmail(sender)
		if err == nil {
			return user, nil
		}
		if !store.IsNotFound(err) {
			return nil, err
		}
	}
	return nil, ErrUserNotFound
}

// resolveCredential picks the provider for the project's repository and the
// owner's token for it.
func (s *Syncer) resolveCredential(project *model.Project) (provider.Provider, string, error) {
	if project.GitRepositoryURL == "" {
		return nil, "", ErrNoRepository
	}
	prov, err := s.providers.Resolve(project.GitRepositoryURL)
	if err != nil {
		return nil, "", err
	}
	owner, err := s.store.User().GetByID(project.UserID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, "", ErrUserNotFound
		}
		return nil, "", err
	}
	token := owner.AccessToken(prov.Name())
	if token == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingCredential, prov.Name())
	}
	return prov, token, nil
}

func (s *Syncer) process(task *Task) {
	telemetry.GetMetrics().RecordSyncQueued(s.ctx, -1)
	defer s.queue.MarkComplete(task)

	ctx, span := telemetry.StartSpan(s.ctx, "syncer.process",
		telemetry.AttrTaskID.String(task.ID),
		telemetry.AttrProjectID.Int64(int64(task.ProjectID)),
	)
	start := time.Now()

	result := s.run(ctx, task)

	providerName := "unknown"
	if result.Project != nil {
		span.SetAttributes(telemetry.AttrRepoURL.String(result.Project.GitRepositoryURL))
		if p, err := s.providers.Resolve(result.Project.GitRepositoryURL); err == nil {
			providerName = p.Name()
		}
	}
	status := "succeeded"
	if result.Err != nil {
		status = "failed"
	}
	span.SetAttributes(telemetry.AttrProvider.String(providerName), telemetry.AttrStatus.String(status))
	telemetry.GetMetrics().RecordSync(ctx, providerName, result.Err == nil, time.Since(start).Seconds())
	telemetry.EndSpan(span, result.Err)

	fields := []zap.Field{
		zap.String("task_id", task.ID),
		zap.Uint("project_id", task.ProjectID),
		zap.String("trigger", task.Trigger),
		zap.Duration("duration", time.Since(start)),
	}
	if result.Report != nil {
		fields = append(fields, zap.Uint("report_id", result.Report.ID))
	}
	if result.Err != nil {
		logger.Warn("Sync failed", append(fields, zap.Error(result.Err))...)
	} else {
		logger.Info("Sync completed", fields...)
	}

	task.complete(result)
}

// run performs one sync. The project's code is replaced only after a
// successful fetch; a report is produced whenever the project exists.
func (s *Syncer) run(ctx context.Context, task *Task) Result {
	project, err := s.store.Project().GetByID(task.ProjectID)
	if err != nil {
		if store.IsNotFound(err) {
			err = ErrProjectNotFound
		}
		return Result{Err: err}
	}

	fail := func(err error) Result {
		return Result{
			Project: project,
			Report:  s.pipeline.GenerateFailed(ctx, project, task.Trigger, err),
			Err:     err,
		}
	}

	prov, token, err := s.resolveCredential(project)
	if err != nil {
		return fail(err)
	}

	branch := task.Branch
	if branch == "" {
		branch = project.Branch
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	content, err := prov.FetchRepositoryContent(fetchCtx, project.GitRepositoryURL, token, branch)
	cancel()
	if err != nil {
		return fail(err)
	}

	uploadedAt := s.now()
	if err := s.store.Project().UpdateCode(project.ID, string(content), branch, uploadedAt); err != nil {
		if store.IsNotFound(err) {
			return Result{Err: ErrProjectNotFound}
		}
		return fail(fmt.Errorf("save project code: %w", err))
	}
	project.Code = string(content)
	project.UploadDate = &uploadedAt
	if branch != "" {
		project.Branch = branch
	}

	return Result{
		Project: project,
		Report:  s.pipeline.Generate(ctx, project, task.Trigger),
	}
}

// IsResolutionError reports whether err is a resolution failure that should
// be answered with a client error.
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrMissingCredential) ||
		errors.Is(err, ErrNoRepository) ||
		errors.Is(err, provider.ErrUnsupportedProvider)
}
