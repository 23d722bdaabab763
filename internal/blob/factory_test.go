package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	fsStore, err := Open(ctx, Config{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("expected filesystem default, got %s", fsStore.Driver())
	}
	mem, err := Open(ctx, Config{Driver: DriverMemory})
	if err != nil || mem.Driver() != DriverMemory {
		t.Fatalf("open memory: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "ftp"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestBackendsShareSemantics(t *testing.T) {
	ctx := context.Background()
	fsStore, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	stores := map[string]Store{
		"memory": NewMemory(),
		"fs":     fsStore,
		"s3":     NewMockS3ForTests(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			key := "proyectos/abc/planos/fachada.pdf"
			if _, err := store.Put(ctx, key, bytes.NewReader([]byte("plano")), PutOptions{ContentType: "application/pdf"}); err != nil {
				t.Fatalf("put: %v", err)
			}
			if _, err := store.Put(ctx, key, bytes.NewReader([]byte("otro")), PutOptions{}); !errors.Is(err, ErrExists) {
				t.Fatalf("expected ErrExists, got %v", err)
			}
			info, rc, err := store.Get(ctx, key)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			body, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(body) != "plano" || info.ContentType != "application/pdf" {
				t.Fatalf("unexpected blob %q %+v", body, info)
			}
			list, err := store.List(ctx, "proyectos/abc/")
			if err != nil || len(list) != 1 || list[0].Key != key {
				t.Fatalf("unexpected list %+v %v", list, err)
			}
			if ok, err := store.Delete(ctx, key); err != nil || !ok {
				t.Fatalf("delete: %v %v", ok, err)
			}
			if ok, err := store.Delete(ctx, key); err != nil || ok {
				t.Fatalf("second delete should report false: %v %v", ok, err)
			}
			if _, _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.Head(ctx, key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on head, got %v", err)
			}
		})
	}
}
