package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/GoPolymarket/namegate/internal/pkg/metrics"
)

// NotificationSink delivers notifications to an external system.
type NotificationSink interface {
	Write(ctx context.Context, n *model.Notification) error
}

// NotificationHistory is a sink that can also list what it stored, newest first.
type NotificationHistory interface {
	NotificationSink
	List(ctx context.Context, limit int) ([]*model.Notification, error)
}

// EventService fans committed ledger notifications out to live subscribers,
// an in-memory ring, an optional history store, extra sinks and a JSONL file.
type EventService struct {
	ch      chan *model.Notification
	buffer  *eventBuffer
	history NotificationHistory
	sinks   []NotificationSink
	file    *os.File
	log     *slog.Logger

	subMu   sync.RWMutex
	subs    map[uint64]chan *model.Notification
	nextSub uint64

	closeOnce sync.Once
	done      chan struct{}
}

// NewEventService creates the hub. logDir may be empty to skip the JSONL file.
func NewEventService(logDir string, bufferSize int, history NotificationHistory, sinks ...NotificationSink) (*EventService, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	svc := &EventService{
		ch:      make(chan *model.Notification, bufferSize),
		buffer:  newEventBuffer(bufferSize),
		history: history,
		sinks:   sinks,
		log:     logger.Component("events"),
		subs:    make(map[uint64]chan *model.Notification),
		done:    make(chan struct{}),
	}

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		// one file per day
		filename := filepath.Join(logDir, "events-"+time.Now().Format("2006-01-02")+".jsonl")
		f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		svc.file = f
	}
	return svc, nil
}

// Publish never blocks: slow subscribers and a full delivery queue drop.
func (s *EventService) Publish(n *model.Notification) {
	s.buffer.Add(n)

	s.subMu.RLock()
	for _, sub := range s.subs {
		select {
		case sub <- n:
		default:
			metrics.NotificationsDropped.Inc()
		}
	}
	s.subMu.RUnlock()

	select {
	case s.ch <- n:
	default:
		metrics.NotificationsDropped.Inc()
		s.log.Warn("notification queue full, dropping", "id", n.ID, "kind", n.Kind)
	}
}

// Subscribe registers a live listener. cancel must be called to release it.
func (s *EventService) Subscribe(size int) (<-chan *model.Notification, func()) {
	if size <= 0 {
		size = 64
	}
	ch := make(chan *model.Notification, size)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// List returns recent notifications, newest first, optionally filtered by kind.
func (s *EventService) List(ctx context.Context, kind model.NotificationKind, limit int) []*model.Notification {
	if s.history != nil && kind == "" {
		records, err := s.history.List(ctx, limit)
		if err == nil {
			return records
		}
		logger.LogError(ctx, err, "notification history unavailable, using memory buffer")
	}
	return s.buffer.List(kind, limit)
}

// Run delivers queued notifications to the sinks until ctx ends or Close is called.
func (s *EventService) Run(ctx context.Context) error {
	var encoder *json.Encoder
	if s.file != nil {
		encoder = json.NewEncoder(s.file)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case n := <-s.ch:
			s.deliver(ctx, encoder, n)
		}
	}
}

func (s *EventService) deliver(ctx context.Context, encoder *json.Encoder, n *model.Notification) {
	if s.history != nil {
		if err := s.write(ctx, s.history, n); err != nil {
			s.log.Error("failed to store notification", "id", n.ID, "error", err.Error())
		}
	}
	for _, sink := range s.sinks {
		if err := s.write(ctx, sink, n); err != nil {
			s.log.Error("failed to deliver notification", "id", n.ID, "error", err.Error())
		}
	}
	if encoder != nil {
		if err := encoder.Encode(n); err != nil {
			s.log.Error("failed to write notification file", "id", n.ID, "error", err.Error())
		}
	}
}

func (s *EventService) write(ctx context.Context, sink NotificationSink, n *model.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return sink.Write(ctx, n)
}

func (s *EventService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.file != nil {
			s.file.Close()
		}
	})
}

type eventBuffer struct {
	mu        sync.Mutex
	maxSize   int
	records   []*model.Notification
	nextIndex int
}

func newEventBuffer(maxSize int) *eventBuffer {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &eventBuffer{
		maxSize: maxSize,
		records: make([]*model.Notification, 0, maxSize),
	}
}

func (b *eventBuffer) Add(n *model.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.records) < b.maxSize {
		b.records = append(b.records, n)
		return
	}
	b.records[b.nextIndex] = n
	b.nextIndex = (b.nextIndex + 1) % b.maxSize
}

func (b *eventBuffer) List(kind model.NotificationKind, limit int) []*model.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > b.maxSize {
		limit = b.maxSize
	}
	results := make([]*model.Notification, 0, limit)
	total := len(b.records)
	for i := 0; i < total; i++ {
		idx := (b.nextIndex + total - 1 - i) % total
		n := b.records[idx]
		if n == nil {
			continue
		}
		if kind != "" && n.Kind != kind {
			continue
		}
		results = append(results, n)
		if len(results) >= limit {
			break
		}
	}
	return results
}
