package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestSpecWatcher_ReuploadsOnWrite(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"project_id":"p"}`))
	}))
	defer server.Close()

	path := writeSpec(t, "spec.md", "v1")
	var results atomic.Int32
	w, err := NewSpecWatcher(NewUploader(server.URL), path, 20*time.Millisecond, func(r *Receipt, err error) {
		if err == nil && r != nil && r.ProjectID == "p" {
			results.Add(1)
		}
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("v2"), 0600); err != nil {
			t.Fatalf("rewrite: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for results.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-done

	if results.Load() == 0 {
		t.Fatal("expected a re-upload after the file changed")
	}
	if hits.Load() > 2 {
		t.Errorf("rapid writes should be debounced, got %d uploads", hits.Load())
	}
}

func TestSpecWatcher_IgnoresOtherFiles(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	path := writeSpec(t, "spec.md", "v1")
	w, err := NewSpecWatcher(NewUploader(server.URL), path, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	other := path + ".bak"
	if err := os.WriteFile(other, []byte("x"), 0600); err != nil {
		t.Fatalf("write other: %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	if hits.Load() != 0 {
		t.Errorf("unrelated file triggered %d uploads", hits.Load())
	}
}
