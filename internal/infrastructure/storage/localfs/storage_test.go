package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenRemoveRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "7_abc_notes.txt", strings.NewReader("payload")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := store.Open(ctx, "7_abc_notes.txt")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "payload" {
		t.Fatalf("unexpected content %q", raw)
	}

	if err := store.Remove(ctx, "7_abc_notes.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := store.Open(ctx, "7_abc_notes.txt"); err == nil {
		t.Fatalf("expected open to fail after remove")
	}
}

func TestSaveStripsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := store.Save(ctx, "../escape.txt", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := store.Open(ctx, "escape.txt"); err != nil {
		t.Fatalf("file must land inside the base dir: %v", err)
	}
}
