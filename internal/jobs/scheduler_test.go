package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingSweeper struct {
	calls   int
	removed int
	err     error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls++
	return s.removed, s.err
}

type countingExpirer struct{ calls int }

func (e *countingExpirer) ExpireInactive(context.Context) (int, error) {
	e.calls++
	return 3, nil
}

type countingPruner struct{ calls int }

func (p *countingPruner) Prune() int {
	p.calls++
	return 1
}

func TestValidateCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: "0 3 * * *", wantErr: false},
		{expr: "*/10 * * * *", wantErr: false},
		{expr: "0 3 * *", wantErr: true},
		{expr: "every day", wantErr: true},
		{expr: "61 * * * *", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			if err := ValidateCron(tt.expr); (err != nil) != tt.wantErr {
				t.Errorf("ValidateCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestSchedulerRegistration(t *testing.T) {
	s, err := NewJobScheduler()
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}
	defer s.Stop()

	sweeper := &countingSweeper{}
	if err := s.Every("cache-sweep", time.Hour, NewSweepJob("TEST", sweeper)); err != nil {
		t.Fatalf("Every failed: %v", err)
	}
	if err := s.Every("cache-sweep", time.Hour, NewSweepJob("TEST", sweeper)); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := s.Every("bad", 0, NewSweepJob("TEST", sweeper)); err == nil {
		t.Error("Expected zero interval to fail")
	}
	if err := s.Cron("cleanup", "not a cron", NewSweepJob("TEST", sweeper)); err == nil {
		t.Error("Expected invalid cron to fail")
	}
	if err := s.Cron("cleanup", "0 3 * * *", JobFunc(func(context.Context) error { return nil })); err != nil {
		t.Fatalf("Cron failed: %v", err)
	}

	s.Start()
	status := s.GetStatus()
	if len(status) != 2 {
		t.Fatalf("Expected 2 jobs, got %d", len(status))
	}
	if status[0].Name != "cache-sweep" || status[1].Name != "cleanup" {
		t.Errorf("Unexpected job order: %+v", status)
	}
	if status[1].Schedule != "0 3 * * *" {
		t.Errorf("Unexpected schedule %q", status[1].Schedule)
	}
}

func TestSchedulerRunNow(t *testing.T) {
	s, err := NewJobScheduler()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	sweeper := &countingSweeper{removed: 2}
	expirer := &countingExpirer{}
	pruner := &countingPruner{}
	s.Every("sweep", time.Hour, NewSweepJob("TEST", sweeper))
	s.Every("sessions", time.Hour, NewSessionExpiryJob(expirer))
	s.Every("prune", time.Hour, NewPruneJob(pruner))

	ctx := context.Background()
	for _, name := range []string{"sweep", "sessions", "prune"} {
		if err := s.RunNow(ctx, name); err != nil {
			t.Errorf("RunNow(%s) failed: %v", name, err)
		}
	}
	if sweeper.calls != 1 || expirer.calls != 1 || pruner.calls != 1 {
		t.Errorf("Expected each job to run once: %d %d %d", sweeper.calls, expirer.calls, pruner.calls)
	}

	if err := s.RunNow(ctx, "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestSweepJobPropagatesError(t *testing.T) {
	job := NewSweepJob("TEST", &countingSweeper{err: errors.New("redis down")})
	if err := job.Run(context.Background()); err == nil {
		t.Error("Expected sweep error to be returned")
	}
}
