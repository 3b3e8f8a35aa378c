package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"csvgrid/internal/config"
	"csvgrid/internal/driver"
	"csvgrid/internal/exporter"
	"csvgrid/internal/format"
	"csvgrid/internal/grid"
	"csvgrid/internal/metrics"
	"csvgrid/internal/source"
	"csvgrid/internal/storage"
)

var ErrPoolClosed = errors.New("worker pool closed")

// Pool manages concurrent export jobs and limits database load.
// It implements a worker pool pattern with a separate semaphore for DB connections,
// allowing for fine-grained control over resource usage.
type Pool struct {
	// jobQueue allows for buffering incoming requests before workers pick them up.
	jobQueue chan *ExportJob
	workers  int
	// dbSem restricts the number of concurrent queries to the database.
	dbSem *semaphore.Weighted
	wg    sync.WaitGroup
	quit  chan struct{}

	mu     sync.RWMutex
	closed bool

	storage storage.Provider
	tempDir string
	metrics *metrics.Collector
}

// NewPool initializes a worker pool with the specified configuration.
// It does not start the workers; call Start() to begin processing.
func NewPool(workers int, maxDBConcurrency int64, store storage.Provider, tempDir string, m *metrics.Collector) *Pool {
	if workers < 1 {
		workers = 1
	}
	if maxDBConcurrency < 1 {
		maxDBConcurrency = 1
	}
	return &Pool{
		jobQueue: make(chan *ExportJob, 100), // Bounded buffer to prevent infinite memory growth
		workers:  workers,
		dbSem:    semaphore.NewWeighted(maxDBConcurrency),
		quit:     make(chan struct{}),
		storage:  store,
		tempDir:  tempDir,
		metrics:  m,
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	slog.Info("Worker pool started", "workers", p.workers)
}

// Submit queues a job. It returns false when the queue is full or the pool is closed.
func (p *Pool) Submit(job *ExportJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	case <-p.quit:
		return false
	default:
		// Queue full
		return false
	}
}

// SubmitWait queues a job, blocking while the queue is full. It returns false when the pool
// is closed or ctx is done before the job was queued.
func (p *Pool) SubmitWait(ctx context.Context, job *ExportJob) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.jobQueue <- job:
		return true
	case <-p.quit:
		return false
	case <-ctx.Done():
		return false
	}
}

// Wait stops accepting jobs, lets the workers drain the queue and returns when all
// queued jobs finished.
func (p *Pool) Wait() {
	if p.close() {
		close(p.jobQueue)
	}
	p.wg.Wait()
}

// Stop initiates graceful shutdown: running jobs finish, queued jobs are failed.
func (p *Pool) Stop() {
	if p.close() {
		close(p.quit)
		close(p.jobQueue)
	}
	p.wg.Wait()
	for job := range p.jobQueue {
		job.finish(StatusFailed, ErrPoolClosed)
	}
	slog.Info("Worker pool stopped")
}

func (p *Pool) close() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	return true
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()
	slog.Debug("Worker started", "worker_id", id)

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(id, job)
		case <-p.quit:
			return
		}
	}
}

func (p *Pool) processJob(workerID int, job *ExportJob) {
	slog.Info("Processing job", "worker_id", workerID, "job_id", job.ID, "name", job.Def.Name)

	job.Started = time.Now()
	job.Status = StatusProcessing
	waitTime := job.Started.Sub(job.Submitted)

	// 1. Acquire DB Semaphore
	if err := p.dbSem.Acquire(job.Ctx, 1); err != nil {
		p.failJob(job, fmt.Errorf("failed to acquire db connection: %w", err))
		return
	}

	err := p.executeExport(job)
	p.dbSem.Release(1)

	if err != nil {
		p.failJob(job, err)
		return
	}

	job.finish(StatusCompleted, nil)
	slog.Info("Job completed",
		"job_id", job.ID,
		"name", job.Def.Name,
		"rows", job.Stats.Rows,
		"files", job.Stats.Files,
		"location", job.Location,
		"wait", waitTime,
		"duration", job.Finished.Sub(job.Started),
	)
}

func (p *Pool) executeExport(job *ExportJob) error {
	ctx := job.Ctx
	def := job.Def

	d, err := driver.Open(def.Driver, def.DSN)
	if err != nil {
		return err
	}
	defer d.Close()

	opts, closeSource, err := p.sourceOptions(ctx, d, def)
	if err != nil {
		return err
	}
	defer closeSource()

	opts = append(opts, gridOptions(def)...)
	opts = append(opts, grid.WithBasePath(p.tempDir), grid.WithMetrics(p.metrics))

	formatter := format.Default()
	formatter.SanitizeFormulas = def.Sanitize

	start := time.Now()
	g := grid.New(formatter, opts...)
	res, err := g.Export(ctx)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	defer func() {
		if err := res.Delete(); err != nil {
			slog.Warn("Failed to remove export directory", "job_id", job.ID, "error", err)
		}
	}()

	job.Stats = Stats{Rows: g.Rows(), Files: len(res.Files()), Duration: time.Since(start)}

	if def.Destination != "" {
		if err := res.Move(def.Destination); err != nil {
			return fmt.Errorf("move failed: %w", err)
		}
		job.Location = def.Destination
		return nil
	}

	if p.storage == nil {
		return errors.New("no destination and no storage provider configured")
	}
	artifact, err := res.ArtifactPath()
	if err != nil {
		return err
	}
	key := fmt.Sprintf("exports/%s/%s%s", job.ID, def.BaseName, filepath.Ext(artifact))
	location, err := res.Publish(ctx, p.storage, key)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	job.Location = location
	return nil
}

// sourceOptions picks the record source of def: a paginated query or a forward-only stream.
func (p *Pool) sourceOptions(ctx context.Context, d driver.Driver, def config.Job) ([]grid.Option, func(), error) {
	noop := func() {}

	if def.Paginate {
		sqlDriver, ok := d.(driver.SQLDriver)
		if !ok {
			return nil, noop, fmt.Errorf("driver %s does not support pagination", d.Name())
		}
		db, err := sqlDriver.DB(ctx)
		if err != nil {
			return nil, noop, err
		}
		var qopts []source.QueryOption
		if def.Key != "" {
			qopts = append(qopts, source.WithKeyColumn(def.Key))
		}
		if def.PageSize > 0 {
			qopts = append(qopts, source.WithPageSize(def.PageSize))
		}
		return []grid.Option{grid.WithPager(source.NewQuery(db, def.Query, qopts...))}, noop, nil
	}

	streamer, err := d.Query(ctx, def.Query)
	if err != nil {
		return nil, noop, err
	}
	rows := source.NewRows(streamer)
	closeRows := func() { rows.Close() }
	if len(def.Labels) > 0 {
		return []grid.Option{grid.WithSource(source.WithLabels(rows, def.Labels))}, closeRows, nil
	}
	return []grid.Option{grid.WithSource(rows)}, closeRows, nil
}

func gridOptions(def config.Job) []grid.Option {
	opts := []grid.Option{
		grid.WithColumns(def.Columns...),
		grid.WithShowHeader(def.HeaderShown()),
		grid.WithShowFooter(def.ShowFooter),
		grid.WithEmptyCell(def.EmptyCell),
		grid.WithNullDisplay(def.NullDisplay),
		grid.WithMaxRowsPerFile(def.MaxRowsPerFile),
	}
	if def.BatchSize > 0 {
		opts = append(opts, grid.WithBatchSize(def.BatchSize))
	}

	var fileOpts []exporter.FileOption
	if def.File.CellDelimiter != nil {
		fileOpts = append(fileOpts, exporter.WithCellDelimiter(*def.File.CellDelimiter))
	}
	if def.File.RowDelimiter != nil {
		fileOpts = append(fileOpts, exporter.WithRowDelimiter(*def.File.RowDelimiter))
	}
	if def.File.Enclosure != nil {
		fileOpts = append(fileOpts, exporter.WithEnclosure(*def.File.Enclosure))
	}
	if def.File.BOM {
		fileOpts = append(fileOpts, exporter.WithUTF8BOM())
	}
	if len(fileOpts) > 0 {
		opts = append(opts, grid.WithFileOptions(fileOpts...))
	}

	// validated when the job file was loaded
	method, _ := def.Archive.ZipMethod()
	opts = append(opts, grid.WithResultOptions(
		exporter.WithFileBaseName(def.BaseName),
		exporter.WithForceArchive(def.Archive.Force),
		exporter.WithArchiveMethod(method),
	))
	return opts
}

func (p *Pool) failJob(job *ExportJob, err error) {
	job.finish(StatusFailed, err)
	slog.Error("Job failed", "job_id", job.ID, "name", job.Def.Name, "error", err)
}
