package services

import (
	"context"
	"time"

	"studynotes/internal/repository"
	"studynotes/internal/storage"
	"studynotes/pkg/logger"
)

// BlobSweepStore can enumerate and delete blobs.
type BlobSweepStore interface {
	storage.BlobLister
	Delete(ctx context.Context, path string) error
}

type SweepOptions struct {
	Prefix string
	DryRun bool
}

type SweepReport struct {
	Scanned  int
	Orphaned int
	Deleted  int
	Failed   int
	DryRun   bool
}

// OrphanSweeper removes blobs that no content row references. A crash
// between the blob write and the row insert, or a failed compensating
// delete, leaves such blobs behind. Blobs younger than the grace period are
// skipped so in-flight submissions are never touched.
type OrphanSweeper struct {
	blobs     BlobSweepStore
	items     repository.ContentRepository
	log       *logger.Logger
	grace     time.Duration
	batchSize int
	now       func() time.Time
}

func NewOrphanSweeper(blobs BlobSweepStore, items repository.ContentRepository, log *logger.Logger, grace time.Duration) *OrphanSweeper {
	return &OrphanSweeper{
		blobs:     blobs,
		items:     items,
		log:       log,
		grace:     grace,
		batchSize: 500,
		now:       time.Now,
	}
}

func (s *OrphanSweeper) Sweep(ctx context.Context, opts SweepOptions) (SweepReport, error) {
	report := SweepReport{DryRun: opts.DryRun}
	cutoff := s.now().Add(-s.grace)
	batch := make([]string, 0, s.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		referenced, err := s.items.ReferencedBlobPaths(ctx, batch)
		if err != nil {
			return err
		}
		for _, path := range batch {
			if _, ok := referenced[path]; ok {
				continue
			}
			report.Orphaned++
			if opts.DryRun {
				s.log.Info("orphan blob found", "blob_path", path)
				continue
			}
			if err := s.blobs.Delete(ctx, path); err != nil {
				report.Failed++
				s.log.Warn("orphan blob delete failed", "blob_path", path, "error", err)
				continue
			}
			report.Deleted++
			s.log.Info("orphan blob deleted", "blob_path", path)
		}
		batch = batch[:0]
		return nil
	}

	err := s.blobs.List(ctx, opts.Prefix, func(obj storage.Object) error {
		report.Scanned++
		if !obj.LastModified.IsZero() && obj.LastModified.After(cutoff) {
			return nil
		}
		batch = append(batch, obj.Key)
		if len(batch) >= s.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return report, err
	}
	if err := flush(); err != nil {
		return report, err
	}
	return report, nil
}
