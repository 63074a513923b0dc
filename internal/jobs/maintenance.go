package jobs

import (
	"context"
	"log"
	"time"
)

// Sweeper removes expired entries from a store
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SessionExpirer deletes conversations past their inactivity limit
type SessionExpirer interface {
	ExpireInactive(ctx context.Context) (int, error)
}

// Pruner drops elapsed rate-limit windows
type Pruner interface {
	Prune() int
}

// SweepJob periodically sweeps one cache
type SweepJob struct {
	tag     string
	sweeper Sweeper
}

// NewSweepJob creates a cache sweep job; tag prefixes its log lines
func NewSweepJob(tag string, sweeper Sweeper) *SweepJob {
	return &SweepJob{tag: tag, sweeper: sweeper}
}

// Run sweeps the cache once
func (j *SweepJob) Run(ctx context.Context) error {
	startTime := time.Now()
	removed, err := j.sweeper.Sweep(ctx)
	if err != nil {
		log.Printf("❌ [%s] Sweep failed: %v", j.tag, err)
		return err
	}
	if removed > 0 {
		log.Printf("🧹 [%s] Swept %d expired entries in %v", j.tag, removed, time.Since(startTime))
	}
	return nil
}

// SessionExpiryJob removes inactive conversations
type SessionExpiryJob struct {
	sessions SessionExpirer
}

// NewSessionExpiryJob creates a session expiry job
func NewSessionExpiryJob(sessions SessionExpirer) *SessionExpiryJob {
	return &SessionExpiryJob{sessions: sessions}
}

// Run expires inactive sessions once
func (j *SessionExpiryJob) Run(ctx context.Context) error {
	expired, err := j.sessions.ExpireInactive(ctx)
	if err != nil {
		log.Printf("❌ [SESSIONS] Expiry failed: %v", err)
		return err
	}
	if expired > 0 {
		log.Printf("🧹 [SESSIONS] Expired %d inactive sessions", expired)
	}
	return nil
}

// PruneJob drops elapsed rate-limit windows
type PruneJob struct {
	pruner Pruner
}

// NewPruneJob creates a rate-limit prune job
func NewPruneJob(pruner Pruner) *PruneJob {
	return &PruneJob{pruner: pruner}
}

// Run prunes once
func (j *PruneJob) Run(_ context.Context) error {
	if removed := j.pruner.Prune(); removed > 0 {
		log.Printf("🧹 [RATE-LIMIT] Pruned %d elapsed windows", removed)
	}
	return nil
}
