package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"shopsync/internal/models"
)

func checkpointAt(syncTime time.Time, records int) models.SyncCheckpoint {
	return models.SyncCheckpoint{SyncType: "orders", LastSyncTime: syncTime, RecordsSynced: records}
}

// scriptedSource returns its pages in call order, ignoring cursors, and
// records every request it saw.
type scriptedSource struct {
	window  bool
	pages   []RecordPage
	reqs    []FetchRequest
	failAt  int // 1-based call index that returns an error
	onFetch func(call int)
}

func (s *scriptedSource) SupportsWindow() bool { return s.window }

func (s *scriptedSource) FetchPage(ctx context.Context, req FetchRequest) (*RecordPage, error) {
	s.reqs = append(s.reqs, req)
	call := len(s.reqs)
	if s.onFetch != nil {
		s.onFetch(call)
	}
	if s.failAt > 0 && call == s.failAt {
		return nil, errors.New("upstream unavailable")
	}
	if call > len(s.pages) {
		return &RecordPage{}, nil
	}
	return &s.pages[call-1], nil
}

type tokenStub struct {
	err error
}

func (t *tokenStub) AccessToken(ctx context.Context) (string, error) {
	if t.err != nil {
		return "", t.err
	}
	return "test-token", nil
}

func rawOrders(prefix string, n int, base time.Time) []json.RawMessage {
	out := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		rec := fmt.Sprintf(
			`{"id":"%s-%03d","order_status":"COMPLETED","create_time":%d,"payment":{"total_amount":"10.00","currency":"GBP"}}`,
			prefix, i, base.Add(time.Duration(i)*time.Minute).Unix(),
		)
		out = append(out, json.RawMessage(rec))
	}
	return out
}

func newSyncService(repo *stubRepo, src *scriptedSource, now time.Time) *SyncService {
	nowFn := func() time.Time { return now }
	return &SyncService{
		Repo:       repo,
		Sources:    map[EntityType]RecordSource{EntityOrders: src},
		Reconciler: &Reconciler{Repo: repo, Now: nowFn},
		Tokens:     &tokenStub{},
		Overlap:    5 * time.Minute,
		PageSize:   50,
		Now:        nowFn,
	}
}

func TestRunSync_FirstRunIsFull(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := now.Add(-24 * time.Hour)
	src := &scriptedSource{
		window: true,
		pages: []RecordPage{
			{Records: rawOrders("A", 50, base), NextCursor: "p2"},
			{Records: rawOrders("B", 30, base.Add(time.Hour))},
		},
	}
	repo := newStubRepo()
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.RecordsSynced != 80 {
		t.Fatalf("records=%d want 80", result.RecordsSynced)
	}
	if !result.FullSync || !result.Committed {
		t.Fatalf("full=%v committed=%v", result.FullSync, result.Committed)
	}
	if len(repo.orders) != 80 {
		t.Fatalf("stored orders=%d want 80", len(repo.orders))
	}
	if src.reqs[0].WindowStart != nil {
		t.Fatalf("full run should not carry a window")
	}
	cp := repo.checkpoints["orders"]
	if !cp.LastSyncTime.Equal(now) {
		t.Fatalf("last_sync_time=%v want %v", cp.LastSyncTime, now)
	}
	if !cp.IsFullSync || cp.RecordsSynced != 80 {
		t.Fatalf("checkpoint full=%v records=%d", cp.IsFullSync, cp.RecordsSynced)
	}
	if cp.LastRecordTime == nil {
		t.Fatalf("last_record_time not set")
	}
}

func TestRunSync_IncrementalWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prevSync := now.Add(-30 * time.Minute)
	src := &scriptedSource{
		window: true,
		pages:  []RecordPage{{Records: rawOrders("C", 3, now.Add(-10*time.Minute))}},
	}
	repo := newStubRepo()
	repo.checkpoints["orders"] = checkpointAt(prevSync, 100)
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.FullSync {
		t.Fatalf("expected incremental run")
	}
	req := src.reqs[0]
	if req.WindowStart == nil || req.WindowEnd == nil {
		t.Fatalf("incremental run must carry a window")
	}
	wantStart := prevSync.Add(-5 * time.Minute)
	if !req.WindowStart.Equal(wantStart) {
		t.Fatalf("window_start=%v want %v", req.WindowStart, wantStart)
	}
	if !req.WindowEnd.Equal(now) {
		t.Fatalf("window_end=%v want %v", req.WindowEnd, now)
	}
	cp := repo.checkpoints["orders"]
	if cp.IsFullSync {
		t.Fatalf("checkpoint should record incremental run")
	}
	if cp.LastSyncTime.Before(prevSync) {
		t.Fatalf("last_sync_time moved backwards")
	}
}

func TestRunSync_FetchFailureKeepsCheckpoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prevSync := now.Add(-time.Hour)
	src := &scriptedSource{
		window: true,
		pages: []RecordPage{
			{Records: rawOrders("D", 50, now.Add(-50*time.Minute)), NextCursor: "p2"},
		},
		failAt: 2,
	}
	repo := newStubRepo()
	repo.checkpoints["orders"] = checkpointAt(prevSync, 10)
	svc := newSyncService(repo, src, now)

	_, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("err=%v want SyncError", err)
	}
	if syncErr.Stage != "fetch" || !syncErr.Partial {
		t.Fatalf("stage=%q partial=%v", syncErr.Stage, syncErr.Partial)
	}
	// Applied pages stay; the checkpoint does not advance.
	if len(repo.orders) != 50 {
		t.Fatalf("stored orders=%d want 50", len(repo.orders))
	}
	cp := repo.checkpoints["orders"]
	if !cp.LastSyncTime.Equal(prevSync) {
		t.Fatalf("checkpoint advanced on failed run")
	}
}

func TestRunSync_ApplyFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		window: true,
		pages:  []RecordPage{{Records: rawOrders("E", 5, now.Add(-time.Hour))}},
	}
	repo := newStubRepo()
	repo.failUpsertAfter = 1
	svc := newSyncService(repo, src, now)

	_, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("err=%v want SyncError", err)
	}
	if syncErr.Stage != "apply" || syncErr.Partial {
		t.Fatalf("stage=%q partial=%v", syncErr.Stage, syncErr.Partial)
	}
	if _, ok := repo.checkpoints["orders"]; ok {
		t.Fatalf("checkpoint written on failed run")
	}
}

func TestRunSync_ForceFullIgnoresCheckpoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		window: true,
		pages:  []RecordPage{{Records: rawOrders("F", 2, now.Add(-time.Hour))}},
	}
	repo := newStubRepo()
	repo.checkpoints["orders"] = checkpointAt(now.Add(-time.Hour), 100)
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{Mode: ModeForceFull})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !result.FullSync {
		t.Fatalf("expected full run")
	}
	if src.reqs[0].WindowStart != nil {
		t.Fatalf("forced full run should not carry a window")
	}
}

func TestRunSync_WindowlessSourceAlwaysFull(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		window: false,
		pages:  []RecordPage{{Records: rawOrders("G", 4, now.Add(-time.Hour))}},
	}
	repo := newStubRepo()
	repo.checkpoints["orders"] = checkpointAt(now.Add(-time.Hour), 4)
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !result.FullSync {
		t.Fatalf("windowless source must run full")
	}
	if src.reqs[0].WindowStart != nil {
		t.Fatalf("windowless source got a window")
	}
}

func TestRunSync_TruncationWithholdsCheckpoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		window: true,
		pages: []RecordPage{
			{Records: rawOrders("H", 50, now.Add(-2*time.Hour)), NextCursor: "p2"},
			{Records: rawOrders("I", 30, now.Add(-time.Hour))},
		},
	}
	repo := newStubRepo()
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{MaxRecords: 50})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !result.Truncated || result.Committed {
		t.Fatalf("truncated=%v committed=%v", result.Truncated, result.Committed)
	}
	if result.RecordsSynced != 50 {
		t.Fatalf("records=%d want 50", result.RecordsSynced)
	}
	if _, ok := repo.checkpoints["orders"]; ok {
		t.Fatalf("truncated run must not commit a checkpoint")
	}
	if len(src.reqs) != 1 {
		t.Fatalf("fetches=%d want 1", len(src.reqs))
	}
}

func TestRunSync_CapOnFinalPageCommits(t *testing.T) {
	// Hitting the record cap on the last page is a complete run, not a
	// truncated one: the checkpoint must be committed.
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		window: true,
		pages: []RecordPage{
			{Records: rawOrders("J", 50, now.Add(-2*time.Hour))},
		},
	}
	repo := newStubRepo()
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{MaxRecords: 50})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.Truncated || !result.Committed {
		t.Fatalf("truncated=%v committed=%v", result.Truncated, result.Committed)
	}
	if result.RecordsSynced != 50 {
		t.Fatalf("records=%d want 50", result.RecordsSynced)
	}
	if _, ok := repo.checkpoints["orders"]; !ok {
		t.Fatalf("completed run must commit a checkpoint")
	}
}

func TestRunSync_EmptyRunCarriesLastRecordTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prevRecord := now.Add(-2 * time.Hour)
	src := &scriptedSource{window: true, pages: []RecordPage{{}}}
	repo := newStubRepo()
	cp := checkpointAt(now.Add(-time.Hour), 10)
	cp.LastRecordTime = &prevRecord
	repo.checkpoints["orders"] = cp
	svc := newSyncService(repo, src, now)

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if result.RecordsSynced != 0 {
		t.Fatalf("records=%d want 0", result.RecordsSynced)
	}
	got := repo.checkpoints["orders"]
	if got.LastRecordTime == nil || !got.LastRecordTime.Equal(prevRecord) {
		t.Fatalf("last_record_time=%v want %v", got.LastRecordTime, prevRecord)
	}
	if !got.LastSyncTime.Equal(now) {
		t.Fatalf("empty run still advances last_sync_time")
	}
}

func TestRunSync_ReapplyIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := rawOrders("M", 20, now.Add(-time.Hour))
	repo := newStubRepo()

	for i := 0; i < 2; i++ {
		src := &scriptedSource{window: true, pages: []RecordPage{{Records: records}}}
		svc := newSyncService(repo, src, now.Add(time.Duration(i)*time.Minute))
		result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{Mode: ModeForceFull})
		if err != nil {
			t.Fatalf("run %d: err=%v", i, err)
		}
		if result.RecordsSynced != 20 {
			t.Fatalf("run %d: records=%d", i, result.RecordsSynced)
		}
	}
	// Same upstream IDs land on the same rows.
	if len(repo.orders) != 20 {
		t.Fatalf("stored orders=%d want 20", len(repo.orders))
	}
}

func TestRunSync_AlreadyRunning(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{window: true}
	repo := newStubRepo()
	svc := newSyncService(repo, src, now)

	if !svc.acquire(EntityOrders) {
		t.Fatalf("lease not acquired")
	}
	defer svc.release(EntityOrders)

	_, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if !errors.Is(err, ErrSyncAlreadyRunning) {
		t.Fatalf("err=%v want ErrSyncAlreadyRunning", err)
	}
}

func TestRunSync_UnknownEntity(t *testing.T) {
	svc := newSyncService(newStubRepo(), &scriptedSource{}, time.Now())
	_, err := svc.RunSync(context.Background(), EntityType("widgets"), RunOptions{})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("err=%v want ErrUnknownEntity", err)
	}
}

func TestRunSync_NoCredential(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{window: true}
	repo := newStubRepo()
	svc := newSyncService(repo, src, now)
	svc.Tokens = &tokenStub{err: ErrNoCredential}

	_, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if !errors.Is(err, ErrNoCredential) {
		t.Fatalf("err=%v want ErrNoCredential", err)
	}
	if len(src.reqs) != 0 {
		t.Fatalf("no page should be fetched without a credential")
	}
}

func TestRunSync_CancelledBetweenPages(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{
		window: true,
		pages: []RecordPage{
			{Records: rawOrders("J", 10, now.Add(-time.Hour)), NextCursor: "p2"},
			{Records: rawOrders("K", 10, now.Add(-30*time.Minute))},
		},
		onFetch: func(call int) {
			if call == 1 {
				cancel()
			}
		},
	}
	repo := newStubRepo()
	svc := newSyncService(repo, src, now)

	_, err := svc.RunSync(ctx, EntityOrders, RunOptions{})
	var syncErr *SyncError
	if !errors.As(err, &syncErr) {
		t.Fatalf("err=%v want SyncError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
	// The in-flight page landed whole before the cancellation was observed.
	if len(repo.orders) != 10 {
		t.Fatalf("stored orders=%d want 10", len(repo.orders))
	}
	if _, ok := repo.checkpoints["orders"]; ok {
		t.Fatalf("cancelled run must not commit a checkpoint")
	}
}

func TestResetCheckpoint(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		window: true,
		pages:  []RecordPage{{Records: rawOrders("L", 1, now.Add(-time.Hour))}},
	}
	repo := newStubRepo()
	repo.checkpoints["orders"] = checkpointAt(now.Add(-time.Hour), 5)
	svc := newSyncService(repo, src, now)

	if err := svc.ResetCheckpoint(context.Background(), EntityOrders); err != nil {
		t.Fatalf("err=%v", err)
	}
	if err := svc.ResetCheckpoint(context.Background(), EntityType("widgets")); !errors.Is(err, ErrUnknownEntity) {
		t.Fatalf("err=%v want ErrUnknownEntity", err)
	}

	result, err := svc.RunSync(context.Background(), EntityOrders, RunOptions{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !result.FullSync {
		t.Fatalf("run after reset should be full")
	}
}
