package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/project-tracker/internal/apperror"
	"github.com/sakif/project-tracker/internal/model"
)

// newTestDB creates an in-memory SQLite database for testing.
// Each test gets a FRESH database — no shared state between tests!
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// t.Cleanup registers a function to run when the test finishes
	// (pass or fail) — like defer, but tied to the test lifecycle.
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testRecord builds a mirror record for ownerKey/remoteID with the
// composite ID already set, the way the service layer hands them to us.
func testRecord(ownerKey string, remoteID int64, name string) *model.RepoRecord {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.RepoRecord{
		ID:              model.RecordID(ownerKey, remoteID),
		OwnerKey:        ownerKey,
		RemoteID:        remoteID,
		Name:            name,
		FullName:        "octocat/" + name,
		Owner:           "octocat",
		URL:             "https://github.com/octocat/" + name,
		Description:     "a test repository",
		Private:         false,
		Language:        "Go",
		Stars:           7,
		Forks:           2,
		DefaultBranch:   "main",
		Topics:          []string{"go", "testing"},
		Size:            128,
		RemoteCreatedAt: now.Add(-48 * time.Hour),
		RemoteUpdatedAt: now.Add(-1 * time.Hour),
		SyncedAt:        now,
		Provenance:      model.ProvenanceSynced,
	}
}

func TestRepoUpsert_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("acct-1", 1001, "hello-world")
	if err := db.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := db.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.ID != "acct-1_1001" {
		t.Errorf("ID = %q, want %q", got.ID, "acct-1_1001")
	}
	if got.Name != "hello-world" {
		t.Errorf("Name = %q, want %q", got.Name, "hello-world")
	}
	if got.Stars != 7 {
		t.Errorf("Stars = %d, want 7", got.Stars)
	}
	if got.Provenance != model.ProvenanceSynced {
		t.Errorf("Provenance = %q, want %q", got.Provenance, model.ProvenanceSynced)
	}
	if len(got.Topics) != 2 || got.Topics[0] != "go" || got.Topics[1] != "testing" {
		t.Errorf("Topics = %v, want [go testing]", got.Topics)
	}
}

func TestRepoUpsert_SameIDOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := testRecord("acct-1", 1001, "hello-world")
	if err := db.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() first: %v", err)
	}

	// Same owner + same remote ID → same composite key → ONE row.
	// Everything about the record should be replaced wholesale.
	second := testRecord("acct-1", 1001, "hello-world-renamed")
	second.Stars = 42
	second.Provenance = model.ProvenanceCreated
	if err := db.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() second: %v", err)
	}

	all, err := db.ListByOwner(ctx, "acct-1")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("ListByOwner() returned %d records, want 1 (upsert must not duplicate)", len(all))
	}
	if all[0].Name != "hello-world-renamed" {
		t.Errorf("Name after overwrite = %q, want %q", all[0].Name, "hello-world-renamed")
	}
	if all[0].Stars != 42 {
		t.Errorf("Stars after overwrite = %d, want 42", all[0].Stars)
	}
	if all[0].Provenance != model.ProvenanceCreated {
		t.Errorf("Provenance after overwrite = %q, want %q", all[0].Provenance, model.ProvenanceCreated)
	}
}

func TestRepoListByOwner_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Two owners mirroring the SAME remote repository — distinct rows,
	// because the composite key includes the ownerKey.
	if err := db.Upsert(ctx, testRecord("acct-a", 500, "shared")); err != nil {
		t.Fatalf("Upsert(): %v", err)
	}
	if err := db.Upsert(ctx, testRecord("acct-b", 500, "shared")); err != nil {
		t.Fatalf("Upsert(): %v", err)
	}
	if err := db.Upsert(ctx, testRecord("acct-a", 501, "only-a")); err != nil {
		t.Fatalf("Upsert(): %v", err)
	}

	forA, err := db.ListByOwner(ctx, "acct-a")
	if err != nil {
		t.Fatalf("ListByOwner(acct-a): %v", err)
	}
	if len(forA) != 2 {
		t.Errorf("ListByOwner(acct-a) returned %d records, want 2", len(forA))
	}

	forB, err := db.ListByOwner(ctx, "acct-b")
	if err != nil {
		t.Fatalf("ListByOwner(acct-b): %v", err)
	}
	if len(forB) != 1 {
		t.Errorf("ListByOwner(acct-b) returned %d records, want 1", len(forB))
	}
}

func TestRepoListByOwner_Empty(t *testing.T) {
	db := newTestDB(t)

	records, err := db.ListByOwner(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("ListByOwner() returned %d records for unknown owner, want 0", len(records))
	}
}

func TestRepoGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByID(context.Background(), "acct-1_9999")
	if err == nil {
		t.Fatal("GetByID() should have returned an error for missing record")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestRepoDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("acct-1", 1001, "doomed")
	if err := db.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert(): %v", err)
	}

	if err := db.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := db.GetByID(ctx, rec.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrNotFound", err)
	}

	// Deleting again: the row is gone → not found
	err = db.Delete(ctx, rec.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() of missing record = %v, want ErrNotFound", err)
	}
}

func TestRepoUpsert_EmptyTopics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("acct-1", 2002, "no-topics")
	rec.Topics = nil
	if err := db.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := db.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(got.Topics) != 0 {
		t.Errorf("Topics = %v, want empty", got.Topics)
	}
}
