package catalogwatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunNotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalogs.yaml")
	if err := os.WriteFile(path, []byte("catalogs: []\n"), 0600); err != nil {
		t.Fatalf("seeding file: %v", err)
	}

	w, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	changed := make(chan struct{}, 1)
	stop := make(chan struct{})
	go w.Run(stop, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, nil)

	if err := os.WriteFile(path, []byte("catalogs: [{}]\n"), 0600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
	close(stop)
}
