package research

import (
	"time"

	"github.com/aristath/pairlab/internal/modules/ledger"
	"github.com/aristath/pairlab/internal/modules/pairs"
)

// EventRunFinished is the type of the event published after every successful run
const EventRunFinished = "run_finished"

// subscriberBuffer bounds queued events per subscriber; slower readers miss events
const subscriberBuffer = 8

// Event is a compact notification of a finished pipeline run.
// The full report is available from Latest.
type Event struct {
	Type       string           `json:"type"`
	RunID      string           `json:"run_id,omitempty"`
	Outcome    Outcome          `json:"outcome"`
	FinishedAt time.Time        `json:"finished_at"`
	Candidates int              `json:"candidates"`
	Best       *pairs.Candidate `json:"best,omitempty"`
	Summary    *ledger.Summary  `json:"summary,omitempty"`
	Warnings   []string         `json:"warnings"`
}

// Subscribe registers for run events. The returned function unsubscribes
// and closes the channel.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subscribers == nil {
		s.subscribers = make(map[int]chan Event)
	}
	s.subscribers[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
}

func (s *Service) publish(r *Report) {
	event := Event{
		Type:       EventRunFinished,
		RunID:      r.RunID,
		Outcome:    r.Outcome,
		FinishedAt: r.FinishedAt,
		Candidates: len(r.Candidates),
		Best:       r.Best,
		Summary:    r.Summary,
		Warnings:   r.Warnings,
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.log.Warn().Int("subscriber", id).Msg("Dropped run event for slow subscriber")
		}
	}
}
