package testsupport

import (
	"testing"

	"mpvctl/internal/config"
	"mpvctl/internal/transcript"
)

// MustOpenTranscript opens a transcript.Store for tests and registers cleanup.
func MustOpenTranscript(t testing.TB, cfg *config.Config) *transcript.Store {
	t.Helper()

	store, err := transcript.Open(cfg)
	if err != nil {
		t.Fatalf("transcript.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
