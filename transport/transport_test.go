package transport

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestWriteFailureTrackerResetsAfterThreeFailures(t *testing.T) {
	tr := newWriteFailureTracker()

	var resetCalled bool
	tr.OnReset(func(error) { resetCalled = true })

	if tr.recordFailure(errClosedForTest) {
		t.Fatalf("first failure must not trigger reset")
	}
	if tr.recordFailure(errClosedForTest) {
		t.Fatalf("second failure must not trigger reset")
	}
	if !tr.recordFailure(errClosedForTest) {
		t.Fatalf("third failure within the window must trigger reset")
	}
	if !resetCalled {
		t.Fatalf("onReset callback was not invoked")
	}
}

func TestWriteFailureTrackerSuccessClearsCount(t *testing.T) {
	tr := newWriteFailureTracker()
	tr.recordFailure(errClosedForTest)
	tr.recordSuccess()
	if tr.recordFailure(errClosedForTest) {
		t.Fatalf("failure count should have reset after a success")
	}
}

var errClosedForTest = ErrClosed

func TestReplayFeedsChunksThenDone(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "capture-*.bin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(make([]byte, 10)); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	r, err := NewReplay(f.Name(), 0, false)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	total := 0
	for {
		chunk, err := r.Read(ctx)
		if err == ErrReplayDone {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		total += len(chunk)
	}
	if total != 10 {
		t.Fatalf("total = %d, want 10", total)
	}
}
