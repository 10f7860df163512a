package contentstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/cid"
)

func TestMockMatchesLocalIdentifier(t *testing.T) {
	m, err := NewMock("")
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(`{"name":"Dark Owl Stout","itemId":1}`)
	got, err := m.UploadContent(context.Background(), data)
	if err != nil {
		t.Fatalf("UploadContent: %v", err)
	}
	want, _ := cid.Compute(data)
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
	if _, err := m.Open(got); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Open without blob dir: err = %v", err)
	}
}

func TestMockUploadFileKeepsBlob(t *testing.T) {
	dir := t.TempDir()
	m, err := NewMock(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "img.png")
	content := []byte("\x89PNG fake")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := m.UploadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	data, err := m.Open(id)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(data) != string(content) {
		t.Errorf("blob = %q", data)
	}
}

func TestMockUploadMissingFile(t *testing.T) {
	m, _ := NewMock("")
	_, err := m.UploadFile(context.Background(), filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, apperr.ErrContentUpload) {
		t.Errorf("err = %v, want ErrContentUpload", err)
	}
}

func TestHTTPUpload(t *testing.T) {
	want, _ := cid.FromBytes([]byte("payload"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/add" || r.Method != http.MethodPost {
			http.Error(w, "bad route", http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("cid-version") != "1" {
			http.Error(w, "cid-version", http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(f)
		if string(body) != "payload" {
			http.Error(w, "unexpected body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Name":"content","Hash":"` + want.String() + `","Size":"7"}`))
	}))
	defer srv.Close()

	h, err := NewHTTP(srv.URL+"/", srv.Client())
	if err != nil {
		t.Fatal(err)
	}
	got, err := h.UploadContent(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("UploadContent: %v", err)
	}
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestHTTPUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "node offline", http.StatusBadGateway)
	}))
	defer srv.Close()

	h, _ := NewHTTP(srv.URL, nil)
	_, err := h.UploadContent(context.Background(), []byte("x"))
	if !errors.Is(err, apperr.ErrContentUpload) {
		t.Errorf("err = %v, want ErrContentUpload", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(ModeMock, "", ""); err != nil {
		t.Errorf("mock: %v", err)
	}
	if _, err := New(ModeHTTP, "", ""); err == nil {
		t.Error("http without url should fail")
	}
	if _, err := New("carrier-pigeon", "", ""); err == nil {
		t.Error("unknown mode should fail")
	}
}
