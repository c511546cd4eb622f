package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
)

func TestDiskStoreLifecycle(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	ctx := context.Background()

	ref, err := store.Save(ctx, "front.jpg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(ref, "properties/") || !strings.HasSuffix(ref, ".jpg") {
		t.Fatalf("unexpected ref %q", ref)
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "jpeg-bytes" {
		t.Fatalf("read %q", data)
	}

	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := store.Remove(ctx, ref); err != nil {
		t.Fatalf("second Remove should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, ref); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

func TestDiskStoreRejectsEscapingRefs(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	if _, err := store.Open(context.Background(), "../../etc/passwd"); !errors.Is(err, ErrBlobNotFound) {
		t.Fatalf("expected ErrBlobNotFound, got %v", err)
	}
}

type recordingStore struct {
	mu      sync.Mutex
	removed []string
}

func (s *recordingStore) Save(ctx context.Context, filename string, src io.Reader) (string, error) {
	return filename, nil
}

func (s *recordingStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	return io.NopCloser(&bytes.Buffer{}), nil
}

func (s *recordingStore) Remove(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, ref)
	if ref == "broken" {
		return errors.New("disk on fire")
	}
	return nil
}

func TestMediaJanitorRemovesAllRefs(t *testing.T) {
	store := &recordingStore{}
	janitor := NewMediaJanitor(store, 3)

	janitor.Remove("a", "b", "broken")
	janitor.Remove("c")
	janitor.Close()

	sort.Strings(store.removed)
	want := []string{"a", "b", "broken", "c"}
	if strings.Join(store.removed, ",") != strings.Join(want, ",") {
		t.Fatalf("removed %v, want %v", store.removed, want)
	}
}
