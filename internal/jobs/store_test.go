package jobs

import (
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJobLifecycle(t *testing.T) {
	s := openStore(t)

	id, err := s.Create("promo-template")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	j, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if j.Status != StatusPending || j.Progress != 0 {
		t.Fatalf("new job = %+v", j)
	}

	if err := s.UpdateProgress(id, 40, "encoding segments"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	j, _ = s.Get(id)
	if j.Status != StatusRunning || j.Progress != 40 || j.Step != "encoding segments" {
		t.Fatalf("running job = %+v", j)
	}

	if err := s.Finish(id, "/out/video.mp4"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	j, _ = s.Get(id)
	if j.Status != StatusDone || j.Progress != 100 || j.Output != "/out/video.mp4" {
		t.Fatalf("finished job = %+v", j)
	}
}

func TestJobFailure(t *testing.T) {
	s := openStore(t)
	id, _ := s.Create("promo-template")

	if err := s.Fail(id, "encode exited 1"); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	j, _ := s.Get(id)
	if j.Status != StatusFailed || j.Error != "encode exited 1" {
		t.Fatalf("failed job = %+v", j)
	}
}

func TestProgressClamped(t *testing.T) {
	s := openStore(t)
	id, _ := s.Create("t")

	if err := s.UpdateProgress(id, 150, "x"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if j, _ := s.Get(id); j.Progress != 100 {
		t.Fatalf("progress = %d, want clamped 100", j.Progress)
	}
}

func TestGetUnknownJob(t *testing.T) {
	s := openStore(t)
	if _, err := s.Get("nope"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateProgress("nope", 1, "x"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkAbandoned(t *testing.T) {
	s := openStore(t)
	id, _ := s.Create("t")
	done, _ := s.Create("t2")
	if err := s.Finish(done, "/out.mp4"); err != nil {
		t.Fatal(err)
	}

	// Zero age catches everything still pending or running.
	n, err := s.MarkAbandoned(-time.Second)
	if err != nil {
		t.Fatalf("MarkAbandoned: %v", err)
	}
	if n != 1 {
		t.Fatalf("abandoned %d jobs, want 1", n)
	}
	if j, _ := s.Get(id); j.Status != StatusAbandoned {
		t.Fatalf("status = %s", j.Status)
	}
	if j, _ := s.Get(done); j.Status != StatusDone {
		t.Fatalf("finished job touched: %s", j.Status)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openStore(t)
	for i := 0; i < 3; i++ {
		if _, err := s.Create("t"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	list, err := s.List(2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatalf("not newest first: %v then %v", list[0].CreatedAt, list[1].CreatedAt)
	}
}
