package transfer

import (
	"os"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
)

// CopyService mirrors the session directory into a destination directory,
// typically a mounted network share. Existing files at the destination
// are overwritten; nothing is deleted.
type CopyService struct {
	Source      string
	Destination string

	logger *logging.Logger
}

// NewCopyService creates a mirror transfer from source to destination.
func NewCopyService(source, destination string, logger *logging.Logger) *CopyService {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &CopyService{
		Source:      source,
		Destination: destination,
		logger:      logger,
	}
}

// Validate checks that the source exists and a destination is set. The
// destination itself may not exist yet; it is created during Run.
func (s *CopyService) Validate() error {
	if s.Destination == "" {
		return errors.NewValidationError("transfer destination is required", nil).WithField("destination")
	}
	if _, err := os.Stat(s.Source); err != nil {
		return errors.NewValidationError("transfer source not found", err).WithField("source")
	}
	return nil
}

// Run mirrors the source tree into the destination.
func (s *CopyService) Run() error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.logger.Info("copying session data", "source", s.Source, "destination", s.Destination)
	if err := copyTree(s.Source, s.Destination); err != nil {
		return err
	}
	s.logger.Info("session data copied", "destination", s.Destination)
	return nil
}

var _ Transfer = (*CopyService)(nil)
