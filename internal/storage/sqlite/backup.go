package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/golang/snappy"

	"media-directory/internal/logging"
)

// snappyMagic opens every framed snappy stream.
var snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")

// Backup writes a compressed snapshot of the database next to it and clears
// the dirty flag. The previous backup is replaced only once the new one is
// complete.
func (e *Engine) Backup(ctx context.Context) error {
	_, err := e.submit(ctx, newTask(kindBackup, func(e *Engine) result {
		return result{err: e.writeBackup()}
	}))
	e.observer.ObserveBackup(string(kindBackup), err)
	if err != nil {
		return fmt.Errorf("sqlite: backup failed: %w", err)
	}
	logging.Debug("SQLite backup written to %s", e.backupPath)
	return nil
}

// backupIfDirty is the periodic backup job.
func (e *Engine) backupIfDirty() {
	if !e.Dirty() {
		logging.Debug("SQLite database unchanged, skipping backup")
		return
	}
	if err := e.Backup(context.Background()); err != nil {
		logging.Error("Periodic SQLite backup failed: %v", err)
	}
}

// writeBackup runs on the worker.
func (e *Engine) writeBackup() error {
	db, err := e.handle()
	if err != nil {
		return err
	}

	snapshot := e.backupPath + ".snapshot"
	tmp := e.backupPath + ".tmp"
	defer os.Remove(snapshot)
	_ = os.Remove(snapshot)

	stmt := "VACUUM INTO " + e.Quote(snapshot)
	if _, err := db.ExecContext(context.Background(), stmt); err != nil {
		return backendError(stmt, err)
	}

	if err := compressFile(snapshot, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, e.backupPath)
}

// restore replaces the database with the backup. Runs through the worker.
func (e *Engine) restore(ctx context.Context) error {
	_, err := e.submit(ctx, newTask(kindRestore, func(e *Engine) result {
		return result{err: e.reopen(func() error {
			if err := removeDatabaseFiles(e.opts.Path); err != nil {
				return err
			}
			return restoreFile(e.backupPath, e.opts.Path)
		})}
	}))
	e.observer.ObserveBackup(string(kindRestore), err)
	return err
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := snappy.NewBufferedWriter(out)
	if _, err := io.Copy(w, in); err != nil {
		_ = w.Close()
		_ = out.Close()
		return err
	}
	if err := w.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// restoreFile copies src to dst, decompressing when src is a snappy stream.
// Plain copies of a database file are accepted too.
func restoreFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	br := bufio.NewReader(in)
	var r io.Reader = br
	head, err := br.Peek(len(snappyMagic))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return err
	}
	if bytes.Equal(head, snappyMagic) {
		r = snappy.NewReader(br)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return fmt.Errorf("sqlite: restoring %s: %w", src, err)
	}
	return out.Close()
}
