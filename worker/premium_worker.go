package worker

import (
	"context"
	"log"
	"time"

	"leadnexus/core"
)

// PremiumWorker runs the premium expiry sweep on a timer, independent of
// request handling. The sweep itself is idempotent, so overlap with request
// traffic needs no extra coordination.
type PremiumWorker struct {
	Premium  *core.PremiumStatusManager
	Interval time.Duration
	Logger   *log.Logger
}

func NewPremiumWorker(premium *core.PremiumStatusManager, interval time.Duration, logger *log.Logger) *PremiumWorker {
	return &PremiumWorker{Premium: premium, Interval: interval, Logger: logger}
}

func (pw *PremiumWorker) Start(ctx context.Context) {
	pw.Logger.Println("Premium expiry worker started")

	ticker := time.NewTicker(pw.Interval)
	defer ticker.Stop()

	pw.runSweep()

	for {
		select {
		case <-ctx.Done():
			pw.Logger.Println("Premium expiry worker shutting down...")
			return
		case <-ticker.C:
			pw.runSweep()
		}
	}
}

func (pw *PremiumWorker) runSweep() {
	expired, err := pw.Premium.SweepExpirations()
	if err != nil {
		pw.Logger.Printf("Error sweeping premium expirations: %v", err)
		return
	}
	if expired > 0 {
		pw.Logger.Printf("Swept %d expired premium providers", expired)
	}
}
