package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/danou294/butter-gestion-sub000/internal/backup"
)

// Job is one background import or restore run. The triggering request
// returns immediately and the UI polls the job's log file for progress.
type Job struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "import" or "restore"
	StartedAt time.Time `json:"started_at"`
	Done      bool      `json:"done"`
	Error     string    `json:"error,omitempty"`
	LogFile   string    `json:"log_file"`

	Summary        *Summary               `json:"summary,omitempty"`
	RestoreSummary *backup.RestoreSummary `json:"restore_summary,omitempty"`
}

// JobManager runs one pipeline job at a time on a background goroutine.
// Single-flight on purpose: two concurrent collection replaces would race on
// the same live collection.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	running bool
	logsDir string
}

func NewJobManager(logsDir string) *JobManager {
	return &JobManager{jobs: make(map[string]*Job), logsDir: logsDir}
}

// jobResult is handed back by the run callback and folded into the Job under
// the manager's lock, so Get never races with the worker goroutine.
type jobResult struct {
	summary        *Summary
	restoreSummary *backup.RestoreSummary
}

// StartImport launches an import run in the background.
func (m *JobManager) StartImport(svc *Service, sourcePath string) (*Job, error) {
	return m.start("import", func(ctx context.Context, log *logrus.Entry) (jobResult, error) {
		summary, err := svc.WithLogger(log).RunImport(ctx, sourcePath)
		return jobResult{summary: summary}, err
	})
}

// StartRestore launches a restore run in the background.
func (m *JobManager) StartRestore(svc *Service, snapshotDir string, safetyBackup bool) (*Job, error) {
	return m.start("restore", func(ctx context.Context, log *logrus.Entry) (jobResult, error) {
		summary, err := svc.WithLogger(log).RunRestore(ctx, snapshotDir, safetyBackup)
		return jobResult{restoreSummary: summary}, err
	})
}

func (m *JobManager) start(kind string, run func(context.Context, *logrus.Entry) (jobResult, error)) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil, fmt.Errorf("another job is already running")
	}

	if err := os.MkdirAll(m.logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}

	id := uuid.NewString()
	job := &Job{
		ID:        id,
		Kind:      kind,
		StartedAt: time.Now().UTC(),
		LogFile:   filepath.Join(m.logsDir, fmt.Sprintf("%s.log", id[:8])),
	}

	logFile, err := os.Create(job.LogFile)
	if err != nil {
		return nil, fmt.Errorf("create job log file: %w", err)
	}

	runLogger := logrus.New()
	runLogger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	runLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := runLogger.WithFields(logrus.Fields{"job": job.ID[:8], "kind": kind})

	m.jobs[job.ID] = job
	m.running = true

	go func() {
		defer logFile.Close()

		entry.Info("job started")
		result, err := run(context.Background(), entry)

		m.mu.Lock()
		defer m.mu.Unlock()
		job.Summary = result.summary
		job.RestoreSummary = result.restoreSummary
		job.Done = true
		m.running = false
		if err != nil {
			job.Error = err.Error()
			entry.WithError(err).Error("job failed")
			return
		}
		entry.Info("job finished")
	}()

	return job, nil
}

// Get returns a copy of the job state.
func (m *JobManager) Get(id string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Tail returns up to n trailing lines of the job's log file.
func (m *JobManager) Tail(id string, n int) ([]string, error) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown job %s", id)
	}

	f, err := os.Open(job.LogFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}
