package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// ProgressEvent is one SSE update: a row-set completed, or a terminal
// state transition.
type ProgressEvent struct {
	JobID       string    `json:"jobId"`
	State       JobState  `json:"state"`
	RowSetIndex int       `json:"rowSetIndex"`
	RowSetsDone int       `json:"rowSetsDone"`
	RowSetCount int       `json:"rowSetCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventBroadcaster fans out progress events to SSE subscribers of a job.
type EventBroadcaster struct {
	mu        sync.RWMutex
	clients   map[string]map[chan ProgressEvent]bool
	lastEvent map[string]ProgressEvent
}

// NewEventBroadcaster returns an empty broadcaster.
func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{
		clients:   make(map[string]map[chan ProgressEvent]bool),
		lastEvent: make(map[string]ProgressEvent),
	}
}

// Subscribe registers a new client channel for jobID, replaying the last
// known event (if any) so a reconnecting client recovers its place.
func (eb *EventBroadcaster) Subscribe(jobID string) chan ProgressEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan ProgressEvent, 16)
	if eb.clients[jobID] == nil {
		eb.clients[jobID] = make(map[chan ProgressEvent]bool)
	}
	eb.clients[jobID][ch] = true

	if last, ok := eb.lastEvent[jobID]; ok {
		select {
		case ch <- last:
		default:
		}
	}

	slog.Debug("SSE client subscribed", "job_id", jobID, "clients", len(eb.clients[jobID]))
	return ch
}

// Unsubscribe removes and closes a client channel.
func (eb *EventBroadcaster) Unsubscribe(jobID string, ch chan ProgressEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if clients, ok := eb.clients[jobID]; ok {
		delete(clients, ch)
		close(ch)
		if len(clients) == 0 {
			delete(eb.clients, jobID)
		}
	}
}

// Broadcast delivers event to every subscriber of its job, dropping it
// for any subscriber whose buffer is full rather than blocking the
// render loop.
func (eb *EventBroadcaster) Broadcast(event ProgressEvent) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	eb.lastEvent[event.JobID] = event

	clients, ok := eb.clients[event.JobID]
	if !ok {
		return
	}
	for ch := range clients {
		select {
		case ch <- event:
		default:
			slog.Warn("SSE channel full, dropping event", "job_id", event.JobID)
		}
	}
}

// CleanupJob closes every subscriber channel for jobID and forgets it.
func (eb *EventBroadcaster) CleanupJob(jobID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if clients, ok := eb.clients[jobID]; ok {
		for ch := range clients {
			close(ch)
		}
		delete(eb.clients, jobID)
	}
	delete(eb.lastEvent, jobID)
}

// handleJobStream serves GET /api/v1/jobs/:id/stream as SSE.
func (s *Server) handleJobStream(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	events := s.jobManager.broadcaster.Subscribe(jobID)
	defer s.jobManager.broadcaster.Unsubscribe(jobID, events)

	initial := ProgressEvent{
		JobID:       job.ID,
		State:       job.State,
		RowSetsDone: job.RowSetsDone,
		RowSetCount: job.RowSetCount,
		Timestamp:   time.Now(),
	}
	if err := writeSSEEvent(w, initial); err != nil {
		slog.Error("failed to write initial SSE event", "error", err)
		return
	}
	flusher.Flush()

	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, event); err != nil {
				slog.Error("failed to write SSE event", "error", err)
				return
			}
			flusher.Flush()
		case <-ping.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal SSE event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
