package transfer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
)

// Manifest is the transfer request consumed by the external daemon. Extra
// identifying info and the cloud-sync flag are opaque pass-through
// configuration for the daemon; the launcher does not interpret them.
type Manifest struct {
	Name           string            `json:"name"`
	Source         string            `json:"source"`
	Destination    string            `json:"destination"`
	Project        string            `json:"project,omitempty"`
	ExtraInfo      map[string]string `json:"extra_info,omitempty"`
	ForceCloudSync bool              `json:"force_cloud_sync"`
	Created        time.Time         `json:"created"`
}

// WatchdogService queues a session transfer by dropping a manifest file
// into a directory watched by an external transfer daemon. The daemon
// deletes the manifest once it has accepted the job; Run optionally
// waits for that pickup.
type WatchdogService struct {
	ManifestDir    string
	Source         string
	Destination    string
	Project        string
	ExtraInfo      map[string]string
	ForceCloudSync bool

	// PickupTimeout bounds the wait for the daemon to consume the
	// manifest. Zero skips the wait entirely (fire and forget).
	PickupTimeout time.Duration

	logger *logging.Logger
}

// NewWatchdogService creates a queued transfer from source to destination
// via the daemon watching manifestDir.
func NewWatchdogService(manifestDir, source, destination string, logger *logging.Logger) *WatchdogService {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &WatchdogService{
		ManifestDir: manifestDir,
		Source:      source,
		Destination: destination,
		logger:      logger,
	}
}

// Validate checks that the daemon's manifest directory and the session
// source exist. A missing manifest directory means the daemon is not
// provisioned on this machine.
func (s *WatchdogService) Validate() error {
	info, err := os.Stat(s.ManifestDir)
	if err != nil || !info.IsDir() {
		return errors.NewValidationError("transfer daemon manifest directory not found", err).WithField("manifest_dir")
	}
	if _, err := os.Stat(s.Source); err != nil {
		return errors.NewValidationError("transfer source not found", err).WithField("source")
	}
	if s.Destination == "" {
		return errors.NewValidationError("transfer destination is required", nil).WithField("destination")
	}
	return nil
}

// Run writes the manifest and, when PickupTimeout is set, waits for the
// daemon to consume it. A manifest still present after the timeout is an
// error; the file is left in place so the daemon can still pick it up
// later.
func (s *WatchdogService) Run() error {
	if err := s.Validate(); err != nil {
		return err
	}

	manifest := Manifest{
		Name:           filepath.Base(s.Source),
		Source:         s.Source,
		Destination:    s.Destination,
		Project:        s.Project,
		ExtraInfo:      s.ExtraInfo,
		ForceCloudSync: s.ForceCloudSync,
		Created:        time.Now().UTC(),
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(s.ManifestDir, "manifest_"+manifest.Name+".json")

	var watcher *fsnotify.Watcher
	if s.PickupTimeout > 0 {
		// The watch must exist before the manifest lands, or a fast
		// daemon could consume it unobserved.
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		defer func() { _ = watcher.Close() }()
		if err := watcher.Add(s.ManifestDir); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	s.logger.Info("transfer manifest queued", "manifest", path, "destination", s.Destination)

	if watcher == nil {
		return nil
	}
	return s.awaitPickup(watcher, path)
}

// awaitPickup blocks until the daemon removes the manifest or the
// timeout elapses.
func (s *WatchdogService) awaitPickup(watcher *fsnotify.Watcher, path string) error {
	deadline := time.After(s.PickupTimeout)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("manifest watcher closed unexpectedly")
			}
			if event.Name == path && event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				s.logger.Info("transfer manifest picked up", "manifest", path)
				return nil
			}
		case err, ok := <-watcher.Errors:
			if ok && err != nil {
				return err
			}
		case <-deadline:
			return errors.NewTimeoutError("transfer manifest pickup")
		}
	}
}

var _ Transfer = (*WatchdogService)(nil)
