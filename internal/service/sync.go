package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopsync/internal/models"
	"shopsync/internal/repository"
)

var (
	// ErrSyncAlreadyRunning rejects a trigger for an entity type that
	// already has a run in flight.
	ErrSyncAlreadyRunning = errors.New("sync already running for this entity type")

	ErrUnknownEntity = errors.New("unknown entity type")
)

// SyncError describes a failed run: which entity, which stage broke, and
// whether any pages were persisted before the failure.
type SyncError struct {
	Entity  EntityType
	Stage   string // "window", "fetch", "apply" or "commit"
	Partial bool   // true when at least one page was applied before failing
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s failed at %s stage (partial=%t): %v", e.Entity, e.Stage, e.Partial, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

type Mode int

const (
	// ModeAuto picks incremental when a checkpoint exists, full otherwise.
	ModeAuto Mode = iota
	// ModeForceFull ignores any checkpoint and re-fetches everything.
	ModeForceFull
)

type RunOptions struct {
	Mode Mode
	// MaxRecords caps the run. A capped run that hits the limit stops
	// without committing a checkpoint: advancing last_sync_time past
	// records never fetched would silently skip them on the next
	// incremental run.
	MaxRecords int
}

type RunResult struct {
	EntityType    EntityType `json:"entity_type"`
	RecordsSynced int        `json:"records_synced"`
	Pages         int        `json:"pages"`
	FullSync      bool       `json:"full_sync"`
	Truncated     bool       `json:"truncated"`
	Committed     bool       `json:"committed"`
}

// SyncService drives sync runs: it decides the fetch window from the last
// checkpoint, walks the source's pages through the reconciler, and commits
// a fresh checkpoint only when the run covered its whole window.
//
// One run per entity type at a time; the per-type lease is held from the
// window decision to the terminal state. Different entity types may run
// concurrently, they touch disjoint tables and checkpoint rows.
type SyncService struct {
	Repo       repository.Repository
	Sources    map[EntityType]RecordSource
	Reconciler *Reconciler
	Tokens     TokenProvider
	Logger     *zap.Logger

	Overlap  time.Duration
	PageSize int

	// Now is overridable in tests.
	Now func() time.Time

	mu      sync.Mutex
	running map[EntityType]bool
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *SyncService) overlap() time.Duration {
	if s.Overlap > 0 {
		return s.Overlap
	}
	return 5 * time.Minute
}

func (s *SyncService) pageSize() int {
	if s.PageSize > 0 {
		return s.PageSize
	}
	return 50
}

func (s *SyncService) acquire(entity EntityType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = make(map[EntityType]bool)
	}
	if s.running[entity] {
		return false
	}
	s.running[entity] = true
	return true
}

func (s *SyncService) release(entity EntityType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, entity)
}

// Running reports whether a run for the entity type is in flight.
func (s *SyncService) Running(entity EntityType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[entity]
}

// RunSync executes one sync run to completion. On any failure the previous
// checkpoint is left untouched, so a retried call re-derives the same
// window; idempotent upserts make the re-covered pages harmless.
func (s *SyncService) RunSync(ctx context.Context, entity EntityType, opts RunOptions) (RunResult, error) {
	source, ok := s.Sources[entity]
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	if !s.acquire(entity) {
		return RunResult{}, ErrSyncAlreadyRunning
	}
	defer s.release(entity)

	if s.Tokens != nil {
		if _, err := s.Tokens.AccessToken(ctx); err != nil {
			return RunResult{}, err
		}
	}

	runID := uuid.NewString()
	log := s.logger().With(
		zap.String("run_id", runID),
		zap.String("entity", string(entity)),
	)

	result := RunResult{EntityType: entity}

	// Window decision. The previous checkpoint is loaded in every mode:
	// even a full run carries last_record_time forward when it sees zero
	// records.
	prev, err := s.Repo.GetSyncCheckpoint(ctx, string(entity))
	if err != nil {
		return result, &SyncError{Entity: entity, Stage: "window", Err: err}
	}
	started := s.now()
	fullSync := opts.Mode == ModeForceFull || prev == nil || !source.SupportsWindow()
	var windowStart, windowEnd *time.Time
	if !fullSync {
		ws := prev.LastSyncTime.Add(-s.overlap())
		windowStart = &ws
		windowEnd = &started
		log.Info("incremental sync",
			zap.Time("window_start", ws),
			zap.Time("window_end", started),
		)
	} else {
		log.Info("full sync", zap.Bool("forced", opts.Mode == ModeForceFull))
	}
	result.FullSync = fullSync

	var maxRecordTime time.Time
	cursor := ""
	for {
		// Cancellation is honored between pages only; a page in flight
		// always lands or fails whole.
		select {
		case <-ctx.Done():
			log.Warn("sync cancelled", zap.Int("records", result.RecordsSynced))
			return result, &SyncError{Entity: entity, Stage: "fetch", Partial: result.RecordsSynced > 0, Err: ctx.Err()}
		default:
		}

		page, err := source.FetchPage(ctx, FetchRequest{
			WindowStart: windowStart,
			WindowEnd:   windowEnd,
			Cursor:      cursor,
			PageSize:    s.pageSize(),
		})
		if err != nil {
			return result, &SyncError{Entity: entity, Stage: "fetch", Partial: result.RecordsSynced > 0, Err: err}
		}
		result.Pages++

		if len(page.Records) > 0 {
			applied, pageMax, err := s.Reconciler.ApplyPage(ctx, entity, page.Records)
			if err != nil {
				return result, &SyncError{Entity: entity, Stage: "apply", Partial: result.RecordsSynced > 0, Err: err}
			}
			result.RecordsSynced += applied
			if pageMax.After(maxRecordTime) {
				maxRecordTime = pageMax
			}
			log.Debug("page applied",
				zap.Int("page", result.Pages),
				zap.Int("records", applied),
			)
		}

		// A run whose cap lands on the final page is complete, not
		// truncated, so the cursor check comes first.
		if page.NextCursor == "" {
			break
		}
		if opts.MaxRecords > 0 && result.RecordsSynced >= opts.MaxRecords {
			result.Truncated = true
			break
		}
		cursor = page.NextCursor
	}

	if result.Truncated {
		log.Warn("sync truncated by record cap, checkpoint withheld",
			zap.Int("records", result.RecordsSynced),
			zap.Int("max_records", opts.MaxRecords),
		)
		return result, nil
	}

	// The checkpoint records coverage through the run's start time, not its
	// finish: records created while the run was paginating may not have
	// been seen, and the next incremental window must include them.
	cp := &models.SyncCheckpoint{
		SyncType:      string(entity),
		LastSyncTime:  started,
		RecordsSynced: result.RecordsSynced,
		IsFullSync:    fullSync,
	}
	if !maxRecordTime.IsZero() {
		cp.LastRecordTime = &maxRecordTime
	} else if prev != nil {
		cp.LastRecordTime = prev.LastRecordTime
	}
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.SaveSyncCheckpointTx(ctx, tx, cp)
	})
	if err != nil {
		return result, &SyncError{Entity: entity, Stage: "commit", Partial: result.RecordsSynced > 0, Err: err}
	}
	result.Committed = true

	log.Info("sync complete",
		zap.Int("records", result.RecordsSynced),
		zap.Int("pages", result.Pages),
		zap.Bool("full_sync", fullSync),
	)
	return result, nil
}

// ResetCheckpoint removes the checkpoint for an entity type, forcing the
// next run to be full. Administrative, used for re-baselining.
func (s *SyncService) ResetCheckpoint(ctx context.Context, entity EntityType) error {
	if _, ok := s.Sources[entity]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return s.Repo.DeleteSyncCheckpoint(ctx, string(entity))
}

func (s *SyncService) logger() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}
