package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
	"github.com/robfig/cron/v3"

	"media-directory/internal/logging"
	"media-directory/internal/search"
	"media-directory/internal/storage"
)

const backendName = "sqlite3"

// Startup error policies.
const (
	// OnErrorRestore restores from backup, then recreates the schema.
	OnErrorRestore = "restore"
	// OnErrorFail refuses to start on an existing unreadable database.
	OnErrorFail = "fail"
)

const defaultQueueSize = 256

// State is the engine lifecycle state.
type State int32

// Engine states.
const (
	StateStarting State = iota
	StateReady
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Observer receives engine events. metrics.EngineObserver implements it.
type Observer interface {
	ObserveTask(kind string, durationSeconds float64, err error)
	ObserveQueueDepth(depth int)
	ObserveState(state string)
	ObserveBackup(kind string, err error)
	ObserveDirty(dirty bool)
}

type nopObserver struct{}

func (nopObserver) ObserveTask(string, float64, error) {}
func (nopObserver) ObserveQueueDepth(int)              {}
func (nopObserver) ObserveState(string)                {}
func (nopObserver) ObserveBackup(string, error)        {}
func (nopObserver) ObserveDirty(bool)                  {}

// Options configures an Engine.
type Options struct {
	// Path is the database file.
	Path string
	// Synchronous is the PRAGMA synchronous level: OFF, NORMAL, FULL or EXTRA.
	Synchronous string
	// OnError is OnErrorRestore (default) or OnErrorFail.
	OnError string
	// BackupEnabled turns on the startup and periodic backups.
	BackupEnabled bool
	// BackupInterval is the period of the backup job.
	BackupInterval time.Duration
	// QueueSize bounds the number of tasks waiting for the worker.
	QueueSize int
	Observer  Observer
}

// Engine is the SQLite implementation of storage.Backend.
type Engine struct {
	opts       Options
	backupPath string
	observer   Observer
	emitter    *search.DefaultEmitter

	state atomic.Int32
	dirty atomic.Bool

	queueMu sync.Mutex
	queue   chan *task
	closed  bool

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	cron *cron.Cron

	// db is owned by the worker goroutine.
	db *sql.DB
}

// Open starts the worker, brings the schema up to date and returns a ready
// engine.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite: database path is empty")
	}
	if opts.Synchronous == "" {
		opts.Synchronous = "NORMAL"
	}
	if opts.OnError == "" {
		opts.OnError = OnErrorRestore
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.BackupInterval <= 0 {
		opts.BackupInterval = 10 * time.Minute
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	e := &Engine{
		opts:       opts,
		backupPath: opts.Path + ".backup",
		observer:   opts.Observer,
		queue:      make(chan *task, opts.QueueSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	e.emitter = search.NewDefaultEmitter(e.Quote)
	e.setState(StateStarting)

	logging.Info("SQLite database path: %s", opts.Path)
	if err := checkPath(opts.Path); err != nil {
		e.setState(StateStopped)
		return nil, err
	}
	existing := fileHasData(opts.Path)

	ready := make(chan error, 1)
	go e.worker(ready)
	if err := <-ready; err != nil {
		e.setState(StateStopped)
		return nil, fmt.Errorf("sqlite: could not open %s: %w", opts.Path, err)
	}

	if err := e.startup(ctx, existing); err != nil {
		logging.Error("SQLite startup failed, shutting down: %v", err)
		_ = e.Close()
		return nil, err
	}

	if opts.BackupEnabled {
		if err := e.Backup(ctx); err != nil {
			logging.Error("Initial SQLite backup failed: %v", err)
		}
		e.cron = cron.New()
		if _, err := e.cron.AddFunc("@every "+opts.BackupInterval.String(), e.backupIfDirty); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("sqlite: invalid backup interval %s: %w", opts.BackupInterval, err)
		}
		e.cron.Start()
		logging.Info("SQLite backups enabled every %s to %s", opts.BackupInterval, e.backupPath)
	}

	e.setState(StateReady)
	return e, nil
}

// startup reads the schema version and migrates, falling back to restore and
// then to a fresh schema.
func (e *Engine) startup(ctx context.Context, existing bool) error {
	version, err := e.readVersion(ctx)
	if err == nil {
		err = e.migrate(ctx, version)
		if errors.Is(err, errNewerSchema) {
			return err
		}
	} else {
		logging.Warn("SQLite database seems to be corrupt or doesn't exist yet: %v", err)
	}
	if err == nil {
		return nil
	}

	if existing && e.opts.OnError == OnErrorFail {
		return fmt.Errorf("%w: %v (on-error policy is %q)", storage.ErrCorruptDatabase, err, OnErrorFail)
	}
	return e.recover(ctx)
}

func (e *Engine) recover(ctx context.Context) error {
	if _, err := os.Stat(e.backupPath); err == nil {
		logging.Info("Trying to restore SQLite database from %s", e.backupPath)
		err := e.restore(ctx)
		if err == nil {
			var version int
			if version, err = e.readVersion(ctx); err == nil {
				err = e.migrate(ctx, version)
			}
		}
		if err == nil {
			logging.Info("SQLite database successfully restored from backup")
			return nil
		}
		logging.Warn("SQLite restore failed: %v", err)
	}

	logging.Info("No usable SQLite backup, creating new database file...")
	if _, err := e.submit(ctx, initTask()); err != nil {
		return fmt.Errorf("%w: could not create schema: %v", storage.ErrCorruptDatabase, err)
	}
	version, err := e.readVersion(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrCorruptDatabase, err)
	}
	if version != storage.CurrentSchemaVersion {
		return fmt.Errorf("%w: new schema reports version %d", storage.ErrCorruptDatabase, version)
	}
	logging.Info("Database created successfully")
	return nil
}

// initTask recreates the database file and the current schema.
func initTask() *task {
	return newTask(kindInit, func(e *Engine) result {
		if err := e.reopen(func() error { return removeDatabaseFiles(e.opts.Path) }); err != nil {
			return result{err: err}
		}
		return result{err: execInTx(e.db, initStatements())}
	})
}

// worker owns the database handle for its whole life.
func (e *Engine) worker(ready chan<- error) {
	defer close(e.done)

	db, err := openDB(e.opts)
	switch {
	case err == nil:
		e.db = db
	case fileHasData(e.opts.Path):
		// An unreadable file is left to the startup fallback chain.
		logging.Warn("SQLite could not open existing database: %v", err)
	default:
		ready <- err
		return
	}
	ready <- nil

	for {
		select {
		case <-e.quit:
			e.stop()
			return
		default:
		}

		select {
		case <-e.quit:
			e.stop()
			return
		case t := <-e.queue:
			e.execute(t)
		}
	}
}

func (e *Engine) execute(t *task) {
	start := time.Now()
	res := t.run(e)
	elapsed := time.Since(start).Seconds()

	if res.err == nil {
		switch {
		case t.kind.contaminates():
			e.setDirty(true)
		case t.kind.decontaminates():
			e.setDirty(false)
		}
	} else {
		logging.Debug("SQLite %s task failed: %v", t.kind, res.err)
	}

	e.observer.ObserveTask(string(t.kind), elapsed, res.err)
	e.observer.ObserveQueueDepth(len(e.queue))
	t.reply <- res
}

// stop fails every queued task and closes the handle.
func (e *Engine) stop() {
drain:
	for {
		select {
		case t := <-e.queue:
			t.reply <- result{err: storage.ErrShutdown}
		default:
			break drain
		}
	}
	e.observer.ObserveQueueDepth(0)

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			e.closeErr = fmt.Errorf("sqlite: close failed: %w", err)
			logging.Error("Closing SQLite database failed: %v", err)
		}
		e.db = nil
	}
}

// submit enqueues t and waits for its result. The context is only consulted
// until the task is queued; a queued task always runs to completion.
func (e *Engine) submit(ctx context.Context, t *task) (result, error) {
	if err := ctx.Err(); err != nil {
		return result{}, err
	}

	e.queueMu.Lock()
	if e.closed {
		e.queueMu.Unlock()
		return result{}, storage.ErrShutdown
	}
	select {
	case e.queue <- t:
	case <-ctx.Done():
		e.queueMu.Unlock()
		return result{}, ctx.Err()
	}
	e.observer.ObserveQueueDepth(len(e.queue))
	e.queueMu.Unlock()

	res := <-t.reply
	return res, res.err
}

// handle returns the open database. Called on the worker only.
func (e *Engine) handle() (*sql.DB, error) {
	if e.db == nil {
		return nil, storage.NewBackendError(backendName, "", "", errors.New("database is not open"))
	}
	return e.db, nil
}

// reopen closes the handle, runs between and opens the file again. Called on
// the worker only.
func (e *Engine) reopen(between func() error) error {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			logging.Warn("Closing SQLite database before reopen failed: %v", err)
		}
		e.db = nil
	}
	if between != nil {
		if err := between(); err != nil {
			return err
		}
	}
	db, err := openDB(e.opts)
	if err != nil {
		return err
	}
	e.db = db
	return nil
}

func openDB(opts Options) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_locking_mode=EXCLUSIVE&_synchronous=%s&_busy_timeout=5000",
		opts.Path, strings.ToUpper(opts.Synchronous))
	db, err := sql.Open(backendName, dsn)
	if err != nil {
		return nil, err
	}
	// One connection that is never recycled: the worker is the only user.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Name implements storage.Backend.
func (e *Engine) Name() string { return backendName }

// Exec implements storage.Backend.
func (e *Engine) Exec(ctx context.Context, statement string) error {
	_, err := e.submit(ctx, execTask(kindExec, statement))
	return err
}

// ExecInsert implements storage.Backend.
func (e *Engine) ExecInsert(ctx context.Context, statement string) (int64, error) {
	res, err := e.submit(ctx, execTask(kindExecInsert, statement))
	return res.id, err
}

// Query implements storage.Backend.
func (e *Engine) Query(ctx context.Context, statement string) (*storage.RowSet, error) {
	res, err := e.submit(ctx, queryTask(statement))
	return res.rows, err
}

// Quote implements storage.Backend.
func (e *Engine) Quote(s string) string { return Quote(s) }

// Quote renders s as an SQLite string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Emitter implements storage.Backend.
func (e *Engine) Emitter() search.Emitter { return e.emitter }

// State returns the lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Dirty reports whether the database changed since the last backup.
func (e *Engine) Dirty() bool { return e.dirty.Load() }

// Path returns the database file path.
func (e *Engine) Path() string { return e.opts.Path }

// Close stops the backup job and the worker. Queued tasks fail with
// storage.ErrShutdown. Close is idempotent.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		if e.cron != nil {
			<-e.cron.Stop().Done()
		}
		e.setState(StateShuttingDown)

		e.queueMu.Lock()
		e.closed = true
		e.queueMu.Unlock()

		close(e.quit)
		<-e.done
		e.setState(StateStopped)
		logging.Info("SQLite database closed")
	})
	return e.closeErr
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	e.observer.ObserveState(s.String())
}

func (e *Engine) setDirty(dirty bool) {
	e.dirty.Store(dirty)
	e.observer.ObserveDirty(dirty)
}

// checkPath verifies the database directory exists and is writable.
func checkPath(path string) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("sqlite: cannot stat database directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("sqlite: %s is not a directory", dir)
	}

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("sqlite: database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			return fmt.Errorf("sqlite: %s is a directory", path)
		}
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file is read-only! Mode: %v", info.Mode())
		}
	}
	return nil
}

func fileHasData(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func removeDatabaseFiles(path string) error {
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
