package services

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// PurgeSchedule is how often expired reset tokens are cleared
const PurgeSchedule = "@every 15m"

// TokenPurger clears expired reset tokens
type TokenPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CronService runs background maintenance jobs
type CronService struct {
	cron   *cron.Cron
	purger TokenPurger
}

// NewCronService creates a new cron service
func NewCronService(purger TokenPurger) *CronService {
	return &CronService{
		cron:   cron.New(),
		purger: purger,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(PurgeSchedule, s.purgeResetTokens); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("⏰ Cron started: reset token purge (%s)", PurgeSchedule)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("🛑 Cron stopped")
}

func (s *CronService) purgeResetTokens() {
	n, err := s.purger.PurgeExpired(context.Background())
	if err != nil {
		log.Printf("❌ Reset token purge failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Cleared %d expired reset tokens", n)
	}
}
