package jsonl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Bizzy211/heimdall/internal/port/persistlog"
)

func TestAppendAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.jsonl")
	l := New(path)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		if err := l.Append(ctx, persistlog.Record{"task_id": id}); err != nil {
			t.Fatal(err)
		}
	}

	recs, err := l.ReadAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0]["task_id"] != "t1" || recs[2]["task_id"] != "t3" {
		t.Errorf("records out of order: %v", recs)
	}
}

func TestReadAllSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.jsonl")
	content := `{"task_id":"t1"}
{not json at all
{"task_id":"t2"}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := New(path).ReadAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// One corrupted line reduces the count by exactly one.
	if len(recs) != 2 {
		t.Fatalf("len = %d, want 2 (corrupt line skipped)", len(recs))
	}
	if recs[0]["task_id"] != "t1" || recs[1]["task_id"] != "t2" {
		t.Errorf("neighbors poisoned: %v", recs)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing.jsonl"))
	recs, err := l.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("len = %d, want 0", len(recs))
	}
}
