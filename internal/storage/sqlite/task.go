package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/mattn/go-sqlite3"

	"media-directory/internal/storage"
)

type taskKind string

const (
	kindQuery      taskKind = "query"
	kindExec       taskKind = "exec"
	kindExecInsert taskKind = "exec_insert"
	kindInit       taskKind = "init"
	kindBackup     taskKind = "backup"
	kindRestore    taskKind = "restore"
)

// contaminates reports whether a successful task of this kind leaves the
// database different from its last backup.
func (k taskKind) contaminates() bool {
	return k == kindExec || k == kindExecInsert || k == kindInit
}

// decontaminates reports whether a successful task of this kind makes the
// backup identical to the database.
func (k taskKind) decontaminates() bool {
	return k == kindBackup || k == kindRestore
}

type result struct {
	rows *storage.RowSet
	id   int64
	err  error
}

// task is one unit of work for the worker. run is only ever called on the
// worker goroutine.
type task struct {
	kind  taskKind
	run   func(e *Engine) result
	reply chan result
}

func newTask(kind taskKind, run func(e *Engine) result) *task {
	return &task{kind: kind, run: run, reply: make(chan result, 1)}
}

func queryTask(statement string) *task {
	return newTask(kindQuery, func(e *Engine) result {
		db, err := e.handle()
		if err != nil {
			return result{err: err}
		}
		rows, err := db.QueryContext(context.Background(), statement)
		if err != nil {
			return result{err: backendError(statement, err)}
		}
		rs, err := storage.ScanRowSet(rows)
		if err != nil {
			return result{err: backendError(statement, err)}
		}
		return result{rows: rs}
	})
}

func execTask(kind taskKind, statement string) *task {
	return newTask(kind, func(e *Engine) result {
		db, err := e.handle()
		if err != nil {
			return result{err: err}
		}
		res, err := db.ExecContext(context.Background(), statement)
		if err != nil {
			return result{err: backendError(statement, err)}
		}
		if kind != kindExecInsert {
			return result{}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return result{err: backendError(statement, err)}
		}
		return result{id: id}
	})
}

// txTask runs statements in order inside one transaction.
func txTask(kind taskKind, statements []string) *task {
	return newTask(kind, func(e *Engine) result {
		db, err := e.handle()
		if err != nil {
			return result{err: err}
		}
		return result{err: execInTx(db, statements)}
	})
}

func execInTx(db *sql.DB, statements []string) error {
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return backendError("BEGIN", err)
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return errors.Join(backendError(stmt, err), rbErr)
			}
			return backendError(stmt, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return backendError("COMMIT", err)
	}
	return nil
}

func backendError(statement string, err error) error {
	code := ""
	var se sqlite3.Error
	if errors.As(err, &se) {
		code = strconv.Itoa(int(se.Code))
	}
	return storage.NewBackendError(backendName, code, statement, err)
}
