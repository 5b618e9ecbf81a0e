package bridge

import "testing"

func TestLogRingFiltersAndAfter(t *testing.T) {
	var clock int64
	r := NewLogRing(3, func() int64 { clock++; return clock })

	r.Append(CatSYS, LevelInfo, "one")
	r.Append(CatCMD, LevelError, "two")
	r.Append(CatTAG, LevelInfo, "three")
	r.Append(CatPROTO, LevelWarn, "four") // evicts "one"

	all := r.Snapshot(0, nil, nil)
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3 (oldest evicted)", len(all))
	}
	if all[0].Message != "two" {
		t.Fatalf("oldest surviving entry = %q, want %q", all[0].Message, "two")
	}

	afterFirst := r.Snapshot(all[0].Index, nil, nil)
	if len(afterFirst) != 2 {
		t.Fatalf("len(afterFirst) = %d, want 2", len(afterFirst))
	}

	onlyErrors := r.Snapshot(0, nil, map[Level]bool{LevelError: true})
	if len(onlyErrors) != 1 || onlyErrors[0].Message != "two" {
		t.Fatalf("level filter returned %+v", onlyErrors)
	}

	onlyTag := r.Snapshot(0, map[Category]bool{CatTAG: true}, nil)
	if len(onlyTag) != 1 || onlyTag[0].Message != "three" {
		t.Fatalf("category filter returned %+v", onlyTag)
	}
}

func TestLogRingFormatsArgs(t *testing.T) {
	r := NewLogRing(10, func() int64 { return 0 })
	r.Append(CatSYS, LevelInfo, "connected to %s:%d", "10.0.0.5", 9090)
	got := r.Snapshot(0, nil, nil)
	want := "connected to 10.0.0.5:9090"
	if len(got) != 1 || got[0].Message != want {
		t.Fatalf("got %+v, want message %q", got, want)
	}
}
