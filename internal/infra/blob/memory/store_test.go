package memory

import (
	"arquitectura/internal/blob/core"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestStoreMissingKeys(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected head not found, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected get not found, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false")
	}
}

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	meta := map[string]string{"proyecto": "abc"}
	info, err := store.Put(ctx, "proyectos/abc/planos/a.dwg", bytes.NewReader([]byte("v")), core.PutOptions{Metadata: meta})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != 1 {
		t.Fatalf("unexpected info %+v", info)
	}
	meta["proyecto"] = "mutado"
	head, _ := store.Head(ctx, "proyectos/abc/planos/a.dwg")
	if head.Metadata["proyecto"] != "abc" {
		t.Fatalf("metadata shared with caller: %+v", head.Metadata)
	}
	if _, err := store.Put(ctx, "proyectos/abc/planos/a.dwg", bytes.NewReader([]byte("v2")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected duplicate put error, got %v", err)
	}
	_, _ = store.Put(ctx, "proyectos/xyz/planos/b.dwg", bytes.NewReader([]byte("w")), core.PutOptions{})
	if list, err := store.List(ctx, ""); err != nil || len(list) != 2 {
		t.Fatalf("list all: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, "proyectos/abc/"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	_, rc, _ := store.Get(ctx, "proyectos/abc/planos/a.dwg")
	body, _ := io.ReadAll(rc)
	if string(body) != "v" {
		t.Fatalf("unexpected body %q", body)
	}
	if _, err := store.PresignURL(ctx, "k", core.SignedURLOptions{}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected unsupported presign")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Put(ctx, "k", bytes.NewReader(nil), core.PutOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
