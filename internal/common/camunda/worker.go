package camunda

import (
	"context"
	"sync"
	"time"

	"iopps-workers/internal/common/config"
	"iopps-workers/internal/common/logger"
	"iopps-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc is the shape every worker's Handle method has.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Recorder receives per-job outcomes. Implemented by observability.Observability.
type Recorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration)
}

// Job outcomes reported to the Recorder.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusThrown    = "bpmn_error"
	StatusUnknown   = "unanswered"
)

// Registry opens job workers and closes them together on shutdown.
type Registry struct {
	client   zbc.Client
	recorder Recorder
	logger   logger.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewRegistry(client zbc.Client, recorder Recorder, log logger.Logger) *Registry {
	return &Registry{
		client:   client,
		recorder: recorder,
		logger:   log,
		workers:  make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType. Callers skip disabled workers before building their
// dependencies, so wcfg.Enabled is not consulted here.
func (r *Registry) Start(taskType string, wcfg config.WorkerConfig, handler HandlerFunc) {
	jobWorker := r.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(Instrument(taskType, handler, r.recorder))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(wcfg.TimeoutDuration()).
		Open()

	r.mu.Lock()
	r.workers[taskType] = jobWorker
	r.mu.Unlock()

	r.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// TaskTypes lists the workers that were opened.
func (r *Registry) TaskTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.workers))
	for taskType := range r.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops polling and waits for in-flight jobs of every worker.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for taskType, w := range r.workers {
		w.Close()
		w.AwaitClose()
		r.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
	}
	r.workers = make(map[string]worker.JobWorker)
}

// Instrument wraps handler so each job's outcome and duration reach Prometheus and the recorder.
// The outcome is whichever command the handler issued last.
func Instrument(taskType string, handler HandlerFunc, recorder Recorder) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		tracked := &statusClient{JobClient: client, status: StatusUnknown}

		handler(tracked, job)

		elapsed := time.Since(start)
		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		if tracked.status == StatusCompleted {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		}
		if recorder != nil {
			ctx := context.Background()
			recorder.RecordJobProcessed(ctx, taskType, tracked.status)
			recorder.RecordJobDuration(ctx, taskType, elapsed)
		}
	}
}

type statusClient struct {
	worker.JobClient
	status string
}

func (c *statusClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = StatusCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *statusClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = StatusFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *statusClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = StatusThrown
	return c.JobClient.NewThrowErrorCommand()
}
