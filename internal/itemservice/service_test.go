package itemservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/cid"
	"github.com/starford/brewmint/internal/contentstore"
	"github.com/starford/brewmint/internal/ledger"
	"github.com/starford/brewmint/internal/models"
	"github.com/starford/brewmint/internal/testutil"
)

func testService(t *testing.T) (*Service, *ledger.DB, *contentstore.Mock) {
	t.Helper()
	_, records := testutil.TestDir(t)
	db := testutil.TestLedger(t)
	blobs, err := contentstore.NewMock(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	rec := models.Record{
		Attributes:  []models.Attribute{{TraitType: "type", Value: "stout"}},
		Description: "Velvety stout",
		Name:        "Midnight Stout",
		ItemID:      5,
	}
	data, _ := json.MarshalIndent(rec, "", "  ")
	if err := records.Write("5_Midnight Stout.json", data); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.RecordFile(db, "5_Midnight Stout.json", data, ""); err != nil {
		t.Fatal(err)
	}
	return NewService(records, db, blobs), db, blobs
}

func TestGetItem(t *testing.T) {
	svc, _, _ := testService(t)
	detail, err := svc.GetItem(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if detail.Record.Name != "Midnight Stout" || detail.Item.ItemID != 5 {
		t.Errorf("detail = %+v", detail)
	}
	if _, err := svc.GetItem(context.Background(), 6); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndSearchNeverNil(t *testing.T) {
	svc, _, _ := testService(t)
	items, total, err := svc.ListItems(context.Background(), 10, 0, ledger.FilterSubmitted)
	if err != nil {
		t.Fatal(err)
	}
	if items == nil || total != 0 {
		t.Errorf("items = %v, total = %d", items, total)
	}
	found, err := svc.Search(context.Background(), "nothing-matches", 10)
	if err != nil {
		t.Fatal(err)
	}
	if found == nil {
		t.Error("search result must not be nil")
	}
}

func TestContent(t *testing.T) {
	svc, _, blobs := testService(t)
	ctx := context.Background()

	jsonID, err := blobs.UploadContent(ctx, []byte(`{"name":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	c, err := svc.Content(ctx, jsonID.String())
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if c.ContentType != "application/json" || string(c.Data) != `{"name":"x"}` {
		t.Errorf("content = %+v", c)
	}

	textID, _ := blobs.UploadContent(ctx, []byte("plain words"))
	c, err = svc.Content(ctx, textID.String())
	if err != nil {
		t.Fatal(err)
	}
	if c.ContentType != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", c.ContentType)
	}

	missing, _ := cid.FromBytes([]byte("never uploaded"))
	for _, raw := range []string{"not-a-cid", missing.String()} {
		if _, err := svc.Content(ctx, raw); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Content(%q) = %v, want ErrNotFound", raw, err)
		}
	}
}

func TestContentWithoutBlobs(t *testing.T) {
	_, records := testutil.TestDir(t)
	svc := NewService(records, testutil.TestLedger(t), nil)
	id, _ := cid.FromBytes([]byte("x"))
	if _, err := svc.Content(context.Background(), id.String()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Ready(context.Background()); err != nil {
		t.Errorf("Ready: %v", err)
	}
}
