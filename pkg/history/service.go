package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/minorlabs/colorizer/pkg/blob"
	"github.com/minorlabs/colorizer/pkg/colorize"
	"github.com/minorlabs/colorizer/pkg/upload"
)

// Service orchestrates uploads, colorization and the owner-scoped history.
// It is the only writer of artifact records and the only deleter of blobs.
type Service struct {
	validator *upload.Validator
	colorizer *colorize.Client
	repo      *Repository
	store     blob.Store
	logger    *slog.Logger
}

func NewService(validator *upload.Validator, colorizer *colorize.Client, repo *Repository, store blob.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		validator: validator,
		colorizer: colorizer,
		repo:      repo,
		store:     store,
		logger:    logger,
	}
}

// SubmitResult is the view returned by a successful submission.
type SubmitResult struct {
	Message   string `json:"message"`
	Original  string `json:"original"`
	Colorized string `json:"colorized"`
}

// SubmitAndColorize runs the full pipeline: validate and store the upload,
// persist the source record, colorize, persist the derived record.
//
// If the engine fails after the source record was created, the source is
// retained without a derived counterpart. Such an orphan never appears in
// List (the join requires a derived row) but still consumes storage; there
// is no automatic retry.
func (s *Service) SubmitAndColorize(ctx context.Context, ownerID string, file multipart.File, header *multipart.FileHeader, label string) (*SubmitResult, error) {
	sourceRef, err := s.validator.Accept(ctx, file, header, label)
	if err != nil {
		return nil, err
	}

	src, err := s.repo.CreateSource(ctx, ownerID, sourceRef, label)
	if err != nil {
		return nil, err
	}

	colorizedRef, err := s.colorizer.Colorize(ctx, sourceRef)
	if err != nil {
		s.logger.Warn("colorization failed, source retained",
			"owner_id", ownerID, "source_id", src.ID, "error", err)
		return nil, err
	}

	if _, err := s.repo.CreateDerived(ctx, ownerID, colorizedRef, src.ID); err != nil {
		return nil, err
	}

	return &SubmitResult{
		Message:   "Image uploaded and colorized successfully",
		Original:  sourceRef,
		Colorized: colorizedRef,
	}, nil
}

// List returns the owner's fully paired history, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]Entry, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// FetchOne returns a single entry by derived artifact id.
func (s *Service) FetchOne(ctx context.Context, ownerID, derivedID string) (*Entry, error) {
	return s.repo.FindOneByOwner(ctx, ownerID, derivedID)
}

// Relabel updates the label on an owner's source artifact.
func (s *Service) Relabel(ctx context.Context, ownerID, sourceID, newLabel string) (*SourceArtifact, error) {
	return s.repo.UpdateLabel(ctx, ownerID, sourceID, newLabel)
}

// Remove deletes the artifact pair: both backing blobs, then both records.
// A blob that is already gone is treated as deleted; any other storage
// failure aborts before the records are touched, so records never outlive a
// still-present blob silently.
func (s *Service) Remove(ctx context.Context, ownerID, derivedID string) error {
	entry, err := s.repo.FindOneByOwner(ctx, ownerID, derivedID)
	if err != nil {
		return err
	}

	for _, ref := range []string{entry.Source.StorageRef, entry.Derived.StorageRef} {
		if err := s.store.Delete(ctx, ref); err != nil {
			if errors.Is(err, blob.ErrNotExist) {
				s.logger.Debug("blob already absent during delete", "storage_ref", ref)
				continue
			}
			return fmt.Errorf("delete blob %q: %w", ref, err)
		}
	}

	return s.repo.DeleteByOwner(ctx, ownerID, derivedID)
}
