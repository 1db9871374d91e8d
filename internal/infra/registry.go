package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/eliteGoblin/focusd/mailslot/internal/domain"
)

const (
	registryFileName = ".session.json"
	registryVersion  = 1
)

// FileRegistry implements domain.SessionRegistry using a hidden JSON file
// next to the signal files.
type FileRegistry struct {
	path string
}

// NewFileRegistry creates a registry inside signalDir.
func NewFileRegistry(signalDir string) *FileRegistry {
	return &FileRegistry{path: filepath.Join(signalDir, registryFileName)}
}

// GetRegistryPath returns the registry file path.
func (r *FileRegistry) GetRegistryPath() string {
	return r.path
}

// Create writes a fresh group record, replacing any previous one.
func (r *FileRegistry) Create(group domain.ProcessGroup) error {
	return r.withLock(func() error {
		group.Version = registryVersion
		if group.Processes == nil {
			group.Processes = make(map[domain.Role]domain.RoleProcess)
		}
		return r.atomicWrite(&group)
	})
}

// Register records one role process. Roles start concurrently, so the
// read-modify-write is serialized with a file lock.
func (r *FileRegistry) Register(proc domain.RoleProcess) error {
	return r.withLock(func() error {
		group, err := r.Load()
		if err != nil {
			return err
		}
		if group == nil {
			// Role started by hand, outside any session
			group = &domain.ProcessGroup{Version: registryVersion}
		}
		if group.Processes == nil {
			group.Processes = make(map[domain.Role]domain.RoleProcess)
		}
		group.Processes[proc.Role] = proc
		return r.atomicWrite(group)
	})
}

// Load returns the current group, or nil if none is recorded.
func (r *FileRegistry) Load() (*domain.ProcessGroup, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var group domain.ProcessGroup
	if err := json.Unmarshal(data, &group); err != nil {
		return nil, fmt.Errorf("corrupt registry %s: %w", r.path, err)
	}
	return &group, nil
}

// Clear removes the registry file. A missing file is not an error.
func (r *FileRegistry) Clear() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	_ = os.Remove(r.path + ".lock")
	return nil
}

func (r *FileRegistry) withLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o777); err != nil {
		return fmt.Errorf("failed to create registry dir: %w", err)
	}

	lockFile, err := os.OpenFile(r.path+".lock", os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	return fn()
}

// atomicWrite writes the group to file atomically (write + rename).
func (r *FileRegistry) atomicWrite(group *domain.ProcessGroup) error {
	data, err := json.MarshalIndent(group, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0o666); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileRegistry implements domain.SessionRegistry.
var _ domain.SessionRegistry = (*FileRegistry)(nil)
