package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cybergodev/logrepo/internal"
)

const (
	DefaultMaxSizeMB  = 100
	DefaultMaxBackups = 10
	DefaultMaxAge     = 30 * 24 * time.Hour

	MaxFileSizeMB   = 10240
	MaxBackupCount  = 1000
	MaxBufferSizeKB = 10 * 1024

	dirPermissions    = 0700
	autoFlushInterval = 100 * time.Millisecond
	cleanupInterval   = time.Hour
)

// rotatingFile is an append-only log file that rotates by size and prunes
// backups by count and age.
type rotatingFile struct {
	path       string
	backups    internal.BackupSet
	maxSize    int64
	maxAge     time.Duration
	maxBackups int
	compress   bool
	onError    func(error)

	mu          sync.Mutex
	file        *os.File
	currentSize atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// normalizeRotation applies defaults. Cleanup is count based when only
// MaxBackups is set, and uses both limits otherwise.
func normalizeRotation(cfg *Config) error {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}

	switch {
	case cfg.MaxAge == 0 && cfg.MaxBackups == 0:
		cfg.MaxAge = DefaultMaxAge
		cfg.MaxBackups = DefaultMaxBackups
	case cfg.MaxAge > 0 && cfg.MaxBackups == 0:
		cfg.MaxBackups = DefaultMaxBackups
	}

	if cfg.MaxSizeMB > MaxFileSizeMB {
		return fmt.Errorf("file: max size %dMB exceeds limit of %dMB", cfg.MaxSizeMB, MaxFileSizeMB)
	}
	if cfg.MaxBackups > MaxBackupCount {
		return fmt.Errorf("file: %d backups exceeds limit of %d", cfg.MaxBackups, MaxBackupCount)
	}
	if cfg.BufferSizeKB > MaxBufferSizeKB {
		return fmt.Errorf("file: buffer of %dKB exceeds limit of %dKB", cfg.BufferSizeKB, MaxBufferSizeKB)
	}
	return nil
}

func openRotatingFile(cfg Config) (*rotatingFile, error) {
	securePath, err := internal.CleanLogPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(securePath), dirPermissions); err != nil {
		return nil, fmt.Errorf("file: create directory: %w", err)
	}

	f, size, err := internal.OpenFile(securePath)
	if err != nil {
		return nil, fmt.Errorf("file: open %s: %w", securePath, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rf := &rotatingFile{
		path:       securePath,
		backups:    internal.NewBackupSet(securePath),
		maxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxAge:     cfg.MaxAge,
		maxBackups: cfg.MaxBackups,
		compress:   cfg.Compress,
		onError:    cfg.OnError,
		file:       f,
		ctx:        ctx,
		cancel:     cancel,
	}
	rf.currentSize.Store(size)

	if rf.maxAge > 0 && rf.maxBackups > 0 {
		rf.wg.Add(1)
		go rf.cleanupRoutine()
	}
	return rf, nil
}

func (rf *rotatingFile) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}

	if internal.NeedsRotation(rf.currentSize.Load(), int64(len(p)), rf.maxSize) {
		if err := rf.rotate(); err != nil {
			return 0, fmt.Errorf("rotation failed: %w", err)
		}
	}

	n, err := rf.file.Write(p)
	rf.currentSize.Add(int64(n))
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

func (rf *rotatingFile) Sync() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	return rf.file.Sync()
}

func (rf *rotatingFile) Close() error {
	rf.cancel()
	rf.wg.Wait()

	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

func (rf *rotatingFile) rotate() error {
	if err := rf.file.Close(); err != nil {
		return fmt.Errorf("close file during rotation: %w", err)
	}
	rf.file = nil

	backupPath := rf.backups.Path(rf.backups.NextIndex())

	if err := os.Rename(rf.path, backupPath); err != nil {
		f, size, reopenErr := internal.OpenFile(rf.path)
		if reopenErr != nil {
			return fmt.Errorf("rename to backup failed and cannot reopen file: rename=%w, reopen=%w", err, reopenErr)
		}
		rf.file = f
		rf.currentSize.Store(size)
		return fmt.Errorf("rename to backup: %w", err)
	}

	if err := rf.backups.Prune(rf.maxBackups); err != nil {
		rf.onError(fmt.Errorf("prune backups of %s: %w", rf.path, err))
	}

	if rf.compress {
		rf.wg.Add(1)
		go rf.compressBackup(backupPath)
	}

	f, size, err := internal.OpenFile(rf.path)
	if err != nil {
		return fmt.Errorf("open new file: %w", err)
	}
	rf.file = f
	rf.currentSize.Store(size)
	return nil
}

func (rf *rotatingFile) compressBackup(path string) {
	defer rf.wg.Done()
	if err := internal.GzipFile(path); err != nil {
		rf.onError(fmt.Errorf("compress backup %s: %w", path, err))
	}
}

func (rf *rotatingFile) cleanupRoutine() {
	defer rf.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rf.ctx.Done():
			return
		case <-ticker.C:
			if err := rf.backups.PruneOlderThan(rf.maxAge, time.Now()); err != nil {
				rf.onError(fmt.Errorf("cleanup old files %s: %w", rf.path, err))
			}
		}
	}
}

// bufferedWriter batches small writes and flushes on size or on a timer.
type bufferedWriter struct {
	mu        sync.Mutex
	target    io.WriteCloser
	buffer    *bufio.Writer
	flushSize int
	onError   func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed atomic.Bool
}

func newBufferedWriter(target io.WriteCloser, sizeKB int, onError func(error)) *bufferedWriter {
	size := sizeKB * 1024
	ctx, cancel := context.WithCancel(context.Background())
	bw := &bufferedWriter{
		target:    target,
		buffer:    bufio.NewWriterSize(target, size),
		flushSize: size / 2,
		onError:   onError,
		ctx:       ctx,
		cancel:    cancel,
	}
	bw.wg.Add(1)
	go bw.autoFlushRoutine()
	return bw
}

func (bw *bufferedWriter) Write(p []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	n, err := bw.buffer.Write(p)
	if err != nil {
		return n, err
	}
	if bw.buffer.Buffered() >= bw.flushSize {
		if err := bw.buffer.Flush(); err != nil {
			return n, fmt.Errorf("auto-flush failed: %w", err)
		}
	}
	return n, nil
}

func (bw *bufferedWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.buffer.Flush()
}

func (bw *bufferedWriter) Close() error {
	if !bw.closed.CompareAndSwap(false, true) {
		return nil
	}
	bw.cancel()
	bw.wg.Wait()

	flushErr := bw.Flush()
	closeErr := bw.target.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

func (bw *bufferedWriter) autoFlushRoutine() {
	defer bw.wg.Done()

	ticker := time.NewTicker(autoFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-ticker.C:
			if err := bw.Flush(); err != nil {
				bw.onError(fmt.Errorf("flush: %w", err))
			}
		}
	}
}
