package ledger

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/chain"
	"github.com/starford/brewmint/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "brewmint-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleItem(id int, file string) models.Item {
	return models.Item{
		ItemID:      id,
		Name:        "Hoppy Lager",
		File:        file,
		Checksum:    "c1",
		Description: "Crisp Lager",
		Attributes:  []models.Attribute{{TraitType: "type", Value: "lager"}},
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"items", "runs", "journal"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetItem(t *testing.T) {
	db := testDB(t)
	it := sampleItem(3, "3_Hoppy Lager.json")
	it.MetadataCID = "bagaaiera1"
	if err := db.UpsertItem(it); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}

	got, err := db.GetItem(3)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Name != "Hoppy Lager" || got.File != "3_Hoppy Lager.json" {
		t.Errorf("unexpected item %+v", got)
	}
	if len(got.Attributes) != 1 || got.Attributes[0].Value != "lager" {
		t.Errorf("attributes = %+v", got.Attributes)
	}
	if got.Submitted() {
		t.Error("new item must not be submitted")
	}

	// Empty identifiers keep the known value.
	it.MetadataCID = ""
	it.Checksum = "c2"
	if err := db.UpsertItem(it); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetItem(3)
	if got.MetadataCID != "bagaaiera1" {
		t.Errorf("metadata cid overwritten: %q", got.MetadataCID)
	}
	if got.Checksum != "c2" {
		t.Errorf("checksum = %q, want c2", got.Checksum)
	}

	byFile, err := db.GetItemByFile("3_Hoppy Lager.json")
	if err != nil || byFile.ItemID != 3 {
		t.Fatalf("GetItemByFile: %v %+v", err, byFile)
	}
}

func TestGetItemNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetItem(99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.MarkSubmitted(99, Submission{Checksum: "c", Handle: "h"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkSubmittedAndFilters(t *testing.T) {
	db := testDB(t)
	for i := range 3 {
		if err := db.UpsertItem(sampleItem(i, string(rune('a'+i))+".json")); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.MarkSubmitted(1, Submission{
		Target:      "journal",
		Collection:  7,
		Checksum:    "c1",
		MetadataCID: "bagaaierasubmitted",
		Handle:      "0xabc#4",
	}); err != nil {
		t.Fatalf("MarkSubmitted: %v", err)
	}

	got, _ := db.GetItem(1)
	if !got.Submitted() || got.Stale() {
		t.Errorf("item 1 should be submitted and fresh: %+v", got)
	}
	if got.TxHandle != "0xabc#4" || got.MetadataCID != "bagaaierasubmitted" {
		t.Errorf("unexpected submission fields %+v", got)
	}
	if !got.SubmittedAs("journal", 7, "c1") {
		t.Errorf("submission target not stored: %+v", got)
	}
	if got.SubmittedAs("journal", 8, "c1") || got.SubmittedAs("hedera:testnet", 7, "c1") {
		t.Error("another collection or target must not match")
	}

	items, total, err := db.ListItems(10, 0, FilterPending)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 || items[0].ItemID != 0 || items[1].ItemID != 2 {
		t.Errorf("pending = %d %+v", total, items)
	}
	_, total, _ = db.ListItems(10, 0, FilterSubmitted)
	if total != 1 {
		t.Errorf("submitted total = %d, want 1", total)
	}

	// A changed file makes the item pending again.
	changed := sampleItem(1, "b.json")
	changed.Checksum = "c9"
	if err := db.UpsertItem(changed); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetItem(1)
	if !got.Stale() {
		t.Error("changed item should be stale")
	}
	if !got.Submitted() {
		t.Error("submission history must survive upsert")
	}

	if _, _, err := db.ListItems(10, 0, "bogus"); err == nil {
		t.Error("expected error for unknown filter")
	}
}

func TestListItemsPaging(t *testing.T) {
	db := testDB(t)
	for i := range 5 {
		if err := db.UpsertItem(sampleItem(i, string(rune('a'+i))+".json")); err != nil {
			t.Fatal(err)
		}
	}
	items, total, err := db.ListItems(2, 2, FilterAll)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(items) != 2 || items[0].ItemID != 2 || items[1].ItemID != 3 {
		t.Errorf("page = %+v", items)
	}
}

func TestFileReassignedToNewItem(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertItem(sampleItem(1, "x.json")); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertItem(sampleItem(2, "x.json")); err != nil {
		t.Fatalf("UpsertItem: %v", err)
	}
	if _, err := db.GetItem(1); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("old owner of the file should be removed")
	}
}

func TestSearch(t *testing.T) {
	db := testDB(t)
	a := sampleItem(0, "a.json")
	b := sampleItem(1, "b.json")
	b.Name = "Dark Porter"
	b.Attributes = []models.Attribute{{TraitType: "type", Value: "porter"}}
	b.Description = "Velvety Porter"
	for _, it := range []models.Item{a, b} {
		if err := db.UpsertItem(it); err != nil {
			t.Fatal(err)
		}
	}

	results, err := db.Search("porter", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ItemID != 1 {
		t.Errorf("results = %+v", results)
	}
	results, _ = db.Search("lager", 10)
	if len(results) != 1 || results[0].ItemID != 0 {
		t.Errorf("attribute search = %+v", results)
	}
}

func TestRuns(t *testing.T) {
	db := testDB(t)
	if r, err := db.LatestRun(); err != nil || r != nil {
		t.Fatalf("LatestRun on empty = %v, %v", r, err)
	}
	id, err := db.StartRun(10, 42)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := db.FinishRun(id, 4); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	r, err := db.LatestRun()
	if err != nil {
		t.Fatal(err)
	}
	if r.ID != id || r.Requested != 10 || r.Generated != 4 || r.Seed != 42 || r.FinishedAt == nil {
		t.Errorf("run = %+v", r)
	}
}

func TestJournalRecorder(t *testing.T) {
	db := testDB(t)
	client, err := chain.NewJournal(db, "")
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := client.CreateCollection(ctx, 5); err != nil {
		t.Fatal(err)
	}
	handle, err := client.SetMetadata(ctx, 5, 0, "bagaaiera", false)
	if err != nil {
		t.Fatal(err)
	}
	if handle.Sequence != 2 {
		t.Errorf("sequence = %d, want 2", handle.Sequence)
	}

	entries, err := db.Journal(0, 10)
	if err != nil {
		t.Fatalf("Journal: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if err := chain.VerifyEntry(e); err != nil {
			t.Errorf("entry %d: %v", e.Seq, err)
		}
		if e.Collection != 5 {
			t.Errorf("collection = %d", e.Collection)
		}
	}
	if entries[0].ItemID != -1 || entries[1].ItemID != 0 {
		t.Errorf("item ids = %d, %d", entries[0].ItemID, entries[1].ItemID)
	}

	tail, _ := db.Journal(1, 10)
	if len(tail) != 1 || tail[0].Op != chain.OpSetMetadata {
		t.Errorf("tail = %+v", tail)
	}
}

func TestCollections(t *testing.T) {
	db := testDB(t)
	if _, err := db.GetCollection("journal", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := db.RecordCollection(Collection{Target: "hedera:testnet", Collection: 1, Handle: "0.0.2@1", Ref: "0.0.900"}); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetCollection("hedera:testnet", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.Handle != "0.0.2@1" || got.Ref != "0.0.900" || got.CreatedAt.IsZero() {
		t.Errorf("collection = %+v", got)
	}
	if _, err := db.GetCollection("journal", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("collections are scoped by target")
	}

	if err := db.RecordCollection(Collection{Target: "hedera:testnet", Collection: 1, Handle: "0.0.2@2", Ref: "0.0.901"}); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetCollection("hedera:testnet", 1)
	if got.Ref != "0.0.901" {
		t.Errorf("ref = %q, want replaced binding", got.Ref)
	}
}

func TestOpenMigratesExistingDatabase(t *testing.T) {
	db := testDB(t)
	if _, err := db.conn.Exec(`DROP TABLE items`); err != nil {
		t.Fatal(err)
	}
	// The first schema version had no submission target columns.
	if _, err := db.conn.Exec(`CREATE TABLE items (
		item_id INTEGER PRIMARY KEY, name TEXT NOT NULL DEFAULT '', file TEXT NOT NULL UNIQUE,
		checksum TEXT NOT NULL DEFAULT '', description TEXT NOT NULL DEFAULT '',
		attributes TEXT NOT NULL DEFAULT '[]', metadata_cid TEXT NOT NULL DEFAULT '',
		image_cid TEXT NOT NULL DEFAULT '', run_id TEXT NOT NULL DEFAULT '',
		tx_handle TEXT NOT NULL DEFAULT '', submitted_checksum TEXT NOT NULL DEFAULT '',
		submitted_at DATETIME, updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec(`INSERT INTO items (item_id, file, submitted_checksum, submitted_at)
		VALUES (5, 'old.json', 'c', CURRENT_TIMESTAMP)`); err != nil {
		t.Fatal(err)
	}

	if err := migrate(db.conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	it, err := db.GetItem(5)
	if err != nil {
		t.Fatal(err)
	}
	if it.SubmittedTarget != "" || it.SubmittedCollection != 0 {
		t.Errorf("migrated item = %+v", it)
	}
	if it.SubmittedAs("journal", 1, "c") {
		t.Error("items from before the migration must be submitted again")
	}
	if err := migrate(db.conn); err != nil {
		t.Errorf("migrate twice: %v", err)
	}
}
