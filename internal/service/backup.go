package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"vpnstore/internal/domain"
	"vpnstore/internal/metrics"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// Swapper gives exclusive access to the database file with the live
// connection closed. The connection is reopened whatever fn returns.
type Swapper interface {
	Exclusive(fn func(path string) error) error
}

// BackupFile describes a stored backup
type BackupFile struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// BackupService copies the database file to and from the backup directory
type BackupService struct {
	db     Swapper
	dir    string
	logger *zap.Logger
	now    func() time.Time

	// OnRestored runs after a successful restore, e.g. to restart the process.
	OnRestored func()
}

// NewBackupService creates a backup service storing copies in dir
func NewBackupService(db Swapper, dir string, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, dir: dir, logger: logger, now: time.Now}
}

// Backup copies the live database into a new timestamped file
func (s *BackupService) Backup(ctx context.Context) (name string, err error) {
	defer func() { metrics.ObserveBackup("backup", err) }()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name = "backup-" + s.now().Format("20060102-150405") + ".db"
	dst := filepath.Join(s.dir, name)
	if _, err := os.Stat(dst); err == nil {
		name = "backup-" + s.now().Format("20060102-150405.000") + ".db"
		dst = filepath.Join(s.dir, name)
	}

	err = s.db.Exclusive(func(path string) error {
		return copyFile(path, dst)
	})
	if err != nil {
		os.Remove(dst)
		s.logger.Error("Backup failed", zap.String("file", name), zap.Error(err))
		return "", err
	}

	s.logger.Info("Backup created", zap.String("file", name))
	return name, nil
}

// List returns the stored backups, newest first
func (s *BackupService) List(ctx context.Context) ([]BackupFile, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup dir: %w", err)
	}

	var files []BackupFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, BackupFile{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name > files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// Restore replaces the live database with the named backup
func (s *BackupService) Restore(ctx context.Context, name string) error {
	src, err := s.resolve(name)
	if err != nil {
		metrics.ObserveBackup("restore", err)
		return err
	}
	return s.restoreFile(src)
}

// RestoreFrom replaces the live database with an uploaded copy. The upload
// is kept in the backup directory.
func (s *BackupService) RestoreFrom(ctx context.Context, r io.Reader) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	dst := filepath.Join(s.dir, "upload-"+s.now().Format("20060102-150405")+".db")
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return fmt.Errorf("store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("store upload: %w", err)
	}
	if err := s.restoreFile(dst); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			os.Remove(dst)
		}
		return err
	}
	return nil
}

// Delete removes the named backup
func (s *BackupService) Delete(ctx context.Context, name string) (err error) {
	defer func() { metrics.ObserveBackup("delete", err) }()

	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	s.logger.Info("Backup deleted", zap.String("file", name))
	return nil
}

func (s *BackupService) restoreFile(src string) (err error) {
	defer func() { metrics.ObserveBackup("restore", err) }()

	if err := checkSQLite(src); err != nil {
		return err
	}

	err = s.db.Exclusive(func(path string) error {
		// Stale WAL files from the old database must not be replayed
		// into the restored one.
		for _, suffix := range []string{"-wal", "-shm"} {
			if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove %s: %w", suffix, err)
			}
		}
		return copyFile(src, path)
	})
	if err != nil {
		s.logger.Error("Restore failed", zap.String("file", filepath.Base(src)), zap.Error(err))
		return err
	}

	s.logger.Info("Database restored", zap.String("file", filepath.Base(src)))
	if s.OnRestored != nil {
		s.OnRestored()
	}
	return nil
}

// resolve maps a backup name to its path, refusing anything outside the
// backup directory.
func (s *BackupService) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: bad backup name %q", domain.ErrInvalidInput, name)
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: backup %s", domain.ErrNotFound, name)
		}
		return "", err
	}
	return path, nil
}

func checkSQLite(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(f, header); err != nil || !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("%w: %s is not a SQLite database", domain.ErrInvalidInput, filepath.Base(path))
	}
	return nil
}

// copyFile copies src over dst through a temporary file in dst's directory
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
