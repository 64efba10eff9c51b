package cron

import (
	"log"
	"time"
)

// Purger 物理删除过期的软删除评论
type Purger interface {
	PurgeDeletedLeaves(before time.Time) (int64, error)
}

type Service struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewService retention 之前软删除且没有回复的评论会被清理，interval 为执行间隔
func NewService(purger Purger, retention, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Service{
		purger:    purger,
		retention: retention,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCleanup()
	log.Printf("Cron service started (purge deleted comments older than %s every %s)", s.retention, s.interval)
}

// Stop 停止定时任务并等待当前清理结束
func (s *Service) Stop() {
	close(s.stopChan)
	<-s.doneChan
	log.Println("Cron service stopped")
}

func (s *Service) runCleanup() {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.PurgeOnce()
		}
	}
}

// PurgeOnce 执行一次清理，返回删除的评论数
func (s *Service) PurgeOnce() int64 {
	if s.purger == nil || s.retention <= 0 {
		return 0
	}

	purged, err := s.purger.PurgeDeletedLeaves(time.Now().Add(-s.retention))
	if err != nil {
		log.Printf("Cleanup comments: purge failed after %d rows: %v", purged, err)
		return purged
	}
	if purged > 0 {
		log.Printf("Cleanup comments: purged %d deleted comments", purged)
	}
	return purged
}
