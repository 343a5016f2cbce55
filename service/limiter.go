package service

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type chatEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ChatLimiter 按聊天 ID 的令牌桶限速，白名单不受限
type ChatLimiter struct {
	limiters  map[int64]*chatEntry
	whitelist map[int64]bool
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
}

// NewChatLimiter 每 interval 补充一个令牌；interval<=0 时不限速
func NewChatLimiter(interval time.Duration, burst int) *ChatLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	if burst < 1 {
		burst = 1
	}
	return &ChatLimiter{
		limiters:  make(map[int64]*chatEntry),
		whitelist: make(map[int64]bool),
		limit:     limit,
		burst:     burst,
	}
}

// Allow 检查该聊天是否还有令牌
func (l *ChatLimiter) Allow(chatID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.whitelist[chatID] {
		return true
	}

	entry, ok := l.limiters[chatID]
	if !ok {
		entry = &chatEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[chatID] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

func (l *ChatLimiter) AddWhitelist(chatID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.whitelist[chatID] = true
}

// Cleanup 删除 idle 时间内没有活动的条目，返回删除数量
func (l *ChatLimiter) Cleanup(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-idle)
	for id, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, id)
			removed++
		}
	}
	return removed
}
