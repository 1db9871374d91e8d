// Package infra implements infrastructure concerns (signal files, processes,
// screen capture, input injection, tmux, registry).
package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

const (
	sharedFilePerm = 0666
	sharedDirPerm  = 0777
)

// FileSignalStore implements domain.SignalStore with one plain file per channel.
// Every failure is logged and reported as "no signal"; it never panics a loop.
type FileSignalStore struct {
	dir    string
	pid    int
	logger *zap.Logger
}

// NewFileSignalStore creates a store rooted at dir.
func NewFileSignalStore(dir string, logger *zap.Logger) *FileSignalStore {
	return &FileSignalStore{dir: dir, pid: os.Getpid(), logger: logger}
}

// Path returns the file path backing a channel.
func (s *FileSignalStore) Path(channel domain.Channel) string {
	return filepath.Join(s.dir, channel.FileName())
}

// Publish writes the payload to a temp file, opens it up to every user, then
// renames it over the channel file.
func (s *FileSignalStore) Publish(channel domain.Channel, payload []byte) error {
	if err := s.publish(channel, payload); err != nil {
		s.logger.Error("failed to publish signal",
			zap.String("channel", string(channel)),
			zap.Error(err))
		return domain.IOError("publish "+string(channel), err)
	}
	return nil
}

func (s *FileSignalStore) publish(channel domain.Channel, payload []byte) error {
	path := s.Path(channel)

	// Unique per process so two writers never share a temp file
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, s.pid)
	if err := os.WriteFile(tmpPath, payload, sharedFilePerm); err != nil {
		return err
	}
	// WriteFile is subject to umask
	if err := os.Chmod(tmpPath, sharedFilePerm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Consume claims the channel file by renaming it to a process-unique name, then
// reads and deletes the claim. A publish that lands after the claim survives
// for the next consume.
func (s *FileSignalStore) Consume(channel domain.Channel) ([]byte, bool) {
	path := s.Path(channel)
	claim := fmt.Sprintf("%s.%d.claim", path, s.pid)

	if err := os.Rename(path, claim); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("failed to claim signal",
				zap.String("channel", string(channel)),
				zap.Error(err))
		}
		return nil, false
	}

	data, err := os.ReadFile(claim)
	if rmErr := os.Remove(claim); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		s.logger.Warn("failed to remove claimed signal",
			zap.String("path", claim),
			zap.Error(rmErr))
	}
	if err != nil {
		s.logger.Error("failed to read claimed signal",
			zap.String("channel", string(channel)),
			zap.Error(err))
		return nil, false
	}
	return data, true
}

// Peek reads the channel without clearing it.
func (s *FileSignalStore) Peek(channel domain.Channel) ([]byte, bool) {
	data, err := os.ReadFile(s.Path(channel))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("failed to read signal",
				zap.String("channel", string(channel)),
				zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// Exists reports whether the channel file is present.
func (s *FileSignalStore) Exists(channel domain.Channel) bool {
	_, err := os.Stat(s.Path(channel))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Error("failed to stat signal",
			zap.String("channel", string(channel)),
			zap.Error(err))
	}
	return err == nil
}

// Prepare creates the shared directory and empties the data channels, removing a
// stale stop flag so freshly started roles do not exit at once. Empty channel
// files read as "no signal".
func (s *FileSignalStore) Prepare() error {
	if err := os.MkdirAll(s.dir, sharedDirPerm); err != nil {
		return domain.IOError("prepare signal dir", err)
	}
	if err := os.Chmod(s.dir, sharedDirPerm); err != nil {
		// Directory owned by another user; files can still be shared
		s.logger.Warn("failed to open up signal dir", zap.String("dir", s.dir), zap.Error(err))
	}

	for _, channel := range []domain.Channel{domain.ChannelMotion, domain.ChannelClickTargets} {
		path := s.Path(channel)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sharedFilePerm)
		if err != nil {
			return domain.IOError("prepare "+string(channel), err)
		}
		f.Close()
		if err := os.Chmod(path, sharedFilePerm); err != nil {
			return domain.IOError("prepare "+string(channel), err)
		}
		s.logger.Debug("signal file ready", zap.String("path", path))
	}

	if err := os.Remove(s.Path(domain.ChannelStop)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return domain.IOError("clear stop flag", err)
	}
	return nil
}

// Ensure FileSignalStore implements domain.SignalStore.
var _ domain.SignalStore = (*FileSignalStore)(nil)
