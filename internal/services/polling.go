package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

// SnapshotQuery narrows a poll. Live sessions are always returned; terminal
// ones only with IncludeTerminal, and then only those finished at or after
// Since when it is set.
type SnapshotQuery struct {
	IncludeTerminal bool
	Since           *time.Time
}

func (q SnapshotQuery) key() string {
	since := "-"
	if q.Since != nil {
		since = strconv.FormatInt(q.Since.UnixNano(), 10)
	}
	return fmt.Sprintf("%t|%s", q.IncludeTerminal, since)
}

// PollingService is the read surface for short-interval polling clients.
// Concurrent identical polls share one database read.
type PollingService struct {
	expireOnPoll bool
	group        singleflight.Group
	runner       *Runner
	scheduler    *Scheduler
	timers       timerSettings
}

// NewPollingService creates a new PollingService. With expireOnPoll, each
// snapshot is preceded by a scheduler tick so overdue sessions are expired
// without a background sweeper.
func NewPollingService(
	runner *Runner,
	scheduler *Scheduler,
	assignTimeout time.Duration,
	cleaningTimeout time.Duration,
	expireOnPoll bool,
) *PollingService {
	return &PollingService{
		expireOnPoll: expireOnPoll,
		runner:       runner,
		scheduler:    scheduler,
		timers: timerSettings{
			assignTimeout:   assignTimeout,
			cleaningTimeout: cleaningTimeout,
		},
	}
}

// Snapshot returns a consistent view of every box and the matching
// sessions. The returned value may be shared between concurrent callers
// and must not be modified.
//
// The shared read runs detached from any single caller's context, so one
// caller giving up does not fail the others waiting on the same key.
func (p *PollingService) Snapshot(ctx context.Context, q SnapshotQuery) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := p.group.DoChan(q.key(), func() (any, error) {
		return p.snapshot(context.WithoutCancel(ctx), q)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logging.Logger.Debug("Poll coalesced", "key", q.key())
		}
		return res.Val.(*Snapshot), nil
	}
}

func (p *PollingService) snapshot(ctx context.Context, q SnapshotQuery) (*Snapshot, error) {
	if p.expireOnPoll {
		if _, err := p.scheduler.Tick(ctx); err != nil {
			logging.Logger.Warn("Tick before poll failed", "error", err)
		}
	}

	var snap *Snapshot
	err := p.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		boxes, err := repo.ListBoxes(ctx, domain.BoxFilter{})
		if err != nil {
			return err
		}
		filter := domain.SessionFilter{}
		if !q.IncludeTerminal {
			filter.Statuses = nonTerminalStatuses()
		}
		sessions, err := repo.ListSessions(ctx, filter)
		if err != nil {
			return err
		}
		snap = p.build(boxes, keepSessions(sessions, q), now)
		return nil
	})
	if err != nil {
		logging.Logger.Error("Poll failed", "error", err)
		return nil, err
	}
	return snap, nil
}

func (p *PollingService) build(boxes []domain.Box, sessions []domain.Session, now time.Time) *Snapshot {
	snap := &Snapshot{
		At:       now,
		Boxes:    make([]BoxView, len(boxes)),
		Sessions: make([]SessionView, len(sessions)),
	}

	numbers := make(map[string]int, len(boxes))
	for i := range boxes {
		b := &boxes[i]
		numbers[b.ID] = b.Number
		snap.Boxes[i] = p.timers.boxView(b, now)
		if b.HoldsCleaningSlot() {
			id := b.ID
			snap.CleaningBoxID = &id
		}
	}

	positions := queuePositions(sessions)
	for i := range sessions {
		s := &sessions[i]
		snap.Sessions[i] = p.timers.sessionView(s, boxNumber(numbers, s.BoxID), positions[s.ID], now)
	}

	snap.Revision = revision(boxes, sessions)
	return snap
}

// GetSession returns one session view
func (p *PollingService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	var view *SessionView
	err := p.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		s, err := repo.GetSession(ctx, id)
		if err != nil {
			return err
		}
		number := 0
		if s.BoxID != nil {
			box, err := repo.GetBox(ctx, *s.BoxID)
			if err != nil {
				return err
			}
			number = box.Number
		}
		position := 0
		if s.Status == domain.SessionInQueue {
			queue, err := repo.ListQueue(ctx)
			if err != nil {
				return err
			}
			position = queuePositions(queue)[s.ID]
		}
		v := p.timers.sessionView(s, number, position, now)
		view = &v
		return nil
	})
	return view, err
}

// GetBox returns one box view
func (p *PollingService) GetBox(ctx context.Context, id string) (*BoxView, error) {
	var view *BoxView
	err := p.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		b, err := repo.GetBox(ctx, id)
		if err != nil {
			return err
		}
		v := p.timers.boxView(b, now)
		view = &v
		return nil
	})
	return view, err
}

// BoxViews attaches cleaning timers to boxes read through the registry
func (p *PollingService) BoxViews(boxes []domain.Box) []BoxView {
	now := p.runner.Now()
	views := make([]BoxView, len(boxes))
	for i := range boxes {
		views[i] = p.timers.boxView(&boxes[i], now)
	}
	return views
}

// Queue returns queued sessions in FIFO order with their positions
func (p *PollingService) Queue(ctx context.Context) ([]SessionView, error) {
	var views []SessionView
	err := p.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		queue, err := repo.ListQueue(ctx)
		if err != nil {
			return err
		}
		views = make([]SessionView, len(queue))
		for i := range queue {
			views[i] = p.timers.sessionView(&queue[i], 0, i+1, now)
		}
		return nil
	})
	return views, err
}

func nonTerminalStatuses() []domain.SessionStatus {
	var out []domain.SessionStatus
	for _, st := range domain.SessionStatuses {
		if !st.IsTerminal() {
			out = append(out, st)
		}
	}
	return out
}

func keepSessions(sessions []domain.Session, q SnapshotQuery) []domain.Session {
	if q.Since == nil {
		return sessions
	}
	kept := sessions[:0]
	for _, s := range sessions {
		if end := s.FinishedAt(); end != nil && end.Before(*q.Since) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// queuePositions numbers in_queue sessions 1..n in the given FIFO order
func queuePositions(sessions []domain.Session) map[string]int {
	positions := make(map[string]int)
	next := 1
	for _, s := range sessions {
		if s.Status == domain.SessionInQueue {
			positions[s.ID] = next
			next++
		}
	}
	return positions
}

func boxNumber(numbers map[string]int, boxID *string) int {
	if boxID == nil {
		return 0
	}
	return numbers[*boxID]
}

// revision digests entity ids and versions in snapshot order
func revision(boxes []domain.Box, sessions []domain.Session) string {
	h := blake3.New()
	for _, b := range boxes {
		fmt.Fprintf(h, "b:%s:%d\n", b.ID, b.Version)
	}
	for _, s := range sessions {
		fmt.Fprintf(h, "s:%s:%d\n", s.ID, s.Version)
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}
