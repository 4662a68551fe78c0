package server

import (
	"errors"
	"testing"
	"time"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalStats(t *testing.T) {
	j := openTestJournal(t)

	now := time.Now().UTC()
	events := []CallEvent{
		{At: now, Target: "compress.zstd", Args: []string{"1"}, Elapsed: 100 * time.Microsecond},
		{At: now, Target: "compress.zstd", Args: []string{"2"}, Elapsed: 300 * time.Microsecond},
		{At: now, Target: "zlib:crc32", Args: []string{"3"}, Err: errors.New("boom"), Elapsed: 50 * time.Microsecond},
	}
	for _, e := range events {
		if err := j.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Stats returned %d targets, want 2", len(stats))
	}

	// Busiest target first.
	zstd := stats[0]
	if zstd.Target != "compress.zstd" {
		t.Fatalf("first target = %q, want compress.zstd", zstd.Target)
	}
	if zstd.Calls != 2 {
		t.Errorf("compress.zstd Calls = %d, want 2", zstd.Calls)
	}
	if zstd.Failures != 0 {
		t.Errorf("compress.zstd Failures = %d, want 0", zstd.Failures)
	}
	if zstd.AvgMicros != 200 {
		t.Errorf("compress.zstd AvgMicros = %v, want 200", zstd.AvgMicros)
	}

	crc := stats[1]
	if crc.Target != "zlib:crc32" {
		t.Fatalf("second target = %q, want zlib:crc32", crc.Target)
	}
	if crc.Calls != 1 || crc.Failures != 1 {
		t.Errorf("zlib:crc32 Calls = %d Failures = %d, want 1 and 1", crc.Calls, crc.Failures)
	}
}

func TestJournalStatsEmpty(t *testing.T) {
	j := openTestJournal(t)

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 0 {
		t.Errorf("Stats on empty journal returned %d rows, want 0", len(stats))
	}
}

func TestJournalSnapshotRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	if _, err := j.LastSnapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LastSnapshot on empty journal error = %v, want ErrNoSnapshot", err)
	}

	first := []string{"compress.zstd"}
	if err := j.Snapshot(first, nil, nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	// The snapshot timestamp is microsecond precision; keep the two apart.
	time.Sleep(2 * time.Millisecond)
	second := []string{"compress.zstd", "digest.sha256"}
	if err := j.Snapshot(second, []string{"zlib:crc32"}, nil); err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	snap, err := j.LastSnapshot()
	if err != nil {
		t.Fatalf("LastSnapshot: %v", err)
	}
	if len(snap.Builtins) != 2 {
		t.Errorf("Builtins = %v, want the later snapshot", snap.Builtins)
	}
	if len(snap.Natives) != 1 || snap.Natives[0] != "zlib:crc32" {
		t.Errorf("Natives = %v, want [zlib:crc32]", snap.Natives)
	}
}

func TestJournalRecordsErrorDetail(t *testing.T) {
	j := openTestJournal(t)

	err := j.Record(CallEvent{
		At:      time.Now().UTC(),
		Target:  "digest.sha256",
		Args:    []string{"7"},
		Err:     errors.New("handle not found"),
		Elapsed: time.Microsecond,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 1 || stats[0].Failures != 1 {
		t.Errorf("stats = %+v, want one target with one failure", stats)
	}
}
