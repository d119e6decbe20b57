package workspace

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/codepod-dev/codepod/internal/blob"
)

const sweepInterval = time.Minute

// Service bundles the metadata store with the phase-1 validator and
// phase-2 committer, and sweeps expired reservations in the background.
type Service struct {
	store     *Store
	backend   blob.Backend
	validator *Validator
	committer *Committer
}

func NewService(db *sqlx.DB, backend blob.Backend) (*Service, error) {
	store, err := NewStore(db)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:     store,
		backend:   backend,
		validator: NewValidator(store, backend),
		committer: NewCommitter(store, backend),
	}, nil
}

func (s *Service) Store() *Store         { return s.store }
func (s *Service) Validator() *Validator { return s.validator }
func (s *Service) Committer() *Committer { return s.committer }

// Start runs the reservation sweeper until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	go s.sweepLoop(ctx)
	return nil
}

func (s *Service) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			swept, err := s.store.DeleteExpiredReservations(ctx, time.Now())
			if err != nil {
				slog.Error("reservation sweep failed", "error", err)
				continue
			}
			if swept > 0 {
				slog.Info("swept expired reservations", "count", swept)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Manifest returns the committed entries and current version from one
// store snapshot, each file entry paired with a short-lived download
// capability.
func (s *Service) Manifest(ctx context.Context, workspaceID string) ([]*ManifestEntry, map[string]string, int64, error) {
	ws, entries, err := s.store.GetSnapshot(ctx, workspaceID)
	if err != nil {
		return nil, nil, 0, err
	}

	downloads := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.Kind != KindFile || entry.StorageKey == "" {
			continue
		}
		url, err := s.backend.PresignGetObject(ctx, entry.StorageKey)
		if err != nil {
			return nil, nil, 0, err
		}
		downloads[entry.FilePath] = url
	}

	return entries, downloads, ws.Version, nil
}
