package services

import (
	"context"
	"sync"
	"time"

	"siesa-sync/pkg/logger"
)

// SyncScheduler triggers inventory reconciliation on an interval. Manual
// triggers through the API share the same gate, so two runs never overlap.
type SyncScheduler struct {
	inventory *InventoryService
	log       *logger.Logger
	interval  time.Duration
	running   sync.Mutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

func NewSyncScheduler(inventory *InventoryService, log *logger.Logger, interval time.Duration) *SyncScheduler {
	return &SyncScheduler{
		inventory: inventory,
		log:       log,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *SyncScheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop gracefully shuts down
func (s *SyncScheduler) Stop() {
	close(s.stopChan)
	s.wg.Wait()
}

func (s *SyncScheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			if err := s.Trigger(ctx); err != nil && ctx.Err() == nil {
				s.log.Errorf("scheduled reconciliation failed: %v", err)
			}
		}
	}
}

// Trigger runs one reconciliation now, unless one is already in flight.
func (s *SyncScheduler) Trigger(ctx context.Context) error {
	if !s.running.TryLock() {
		s.log.Infof("reconciliation already running, trigger skipped")
		return nil
	}
	defer s.running.Unlock()

	_, err := s.inventory.RunReconciliation(ctx)
	return err
}
