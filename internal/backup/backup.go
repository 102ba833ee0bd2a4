// Package backup periodically copies the data directory aside and prunes
// old copies.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hospadmin/internal/config"
)

type Service struct {
	dataDir string
	cfg     config.Config
	logger  *zerolog.Logger
}

func NewService(dataDir string, cfg config.Config, logger *zerolog.Logger) *Service {
	return &Service{
		dataDir: dataDir,
		cfg:     cfg,
		logger:  logger,
	}
}

// Start runs backups on the configured interval until ctx is cancelled.
// The first backup runs immediately.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Backup.Enabled {
		s.logger.Info().Msg("backup service is disabled")
		return
	}

	interval := time.Duration(s.cfg.Backup.IntervalHours) * time.Hour
	s.logger.Info().Dur("interval", interval).Msg("backup service started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.Perform(); err != nil {
		s.logger.Error().Err(err).Msg("initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Perform(); err != nil {
				s.logger.Error().Err(err).Msg("scheduled backup failed")
			}
			s.CleanupOld()
		}
	}
}

// Perform copies every regular file in the data directory into a
// timestamped backup directory.
func (s *Service) Perform() error {
	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(s.cfg.Backup.Path, "backup_"+timestamp)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return fmt.Errorf("read data directory: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(s.dataDir, entry.Name()), filepath.Join(dest, entry.Name())); err != nil {
			return fmt.Errorf("copy %s: %w", entry.Name(), err)
		}
		copied++
	}

	s.logger.Info().Str("path", dest).Int("files", copied).Msg("backup completed")
	return nil
}

// CleanupOld removes backup directories older than the retention window.
func (s *Service) CleanupOld() {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.Backup.RetentionDays)

	entries, err := os.ReadDir(s.cfg.Backup.Path)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory failed")
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "backup_") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(s.cfg.Backup.Path, entry.Name())); err != nil {
				s.logger.Error().Err(err).Str("name", entry.Name()).Msg("remove old backup failed")
				continue
			}
			s.logger.Info().Str("name", entry.Name()).Msg("old backup removed")
		}
	}
}

func copyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destination.Close()

	_, err = io.Copy(destination, source)
	return err
}
