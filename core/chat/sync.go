package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trezcool/masomo-portal/core"
)

// DefaultPollInterval is the reload period of a Synchronizer.
const DefaultPollInterval = 3 * time.Second

// SyncState is the state of a Synchronizer: Idle -> Loading -> Idle on every load.
type SyncState int32

const (
	Idle SyncState = iota
	Loading
)

func (s SyncState) String() string {
	if s == Loading {
		return "loading"
	}
	return "idle"
}

// SyncSource is what a Synchronizer needs from the chat Service.
type SyncSource interface {
	History(ctx context.Context, selfID, peerID string) ([]Message, error)
	Send(ctx context.Context, senderID, receiverID, text string) (Message, error)
	Delete(ctx context.Context, selfID, peerID, messageID string) error
	Clear(ctx context.Context, selfID, peerID string) error
}

var _ SyncSource = (*Service)(nil) // interface compliance check

// Synchronizer keeps a view of the conversation between self and peer approximately fresh by polling.
// Every load replaces the whole view with the persisted state, so the view never shows unsaved data.
type Synchronizer struct {
	src      SyncSource
	selfID   string
	peerID   string
	interval time.Duration
	logger   core.Logger

	state  int32 // SyncState
	loadMu sync.Mutex

	mu       sync.RWMutex
	messages []Message
	lastErr  error
	updates  chan struct{}

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSynchronizer(src SyncSource, selfID, peerID string, interval time.Duration, logger core.Logger) *Synchronizer {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Synchronizer{
		src:      src,
		selfID:   selfID,
		peerID:   peerID,
		interval: interval,
		logger:   logger,
		messages: []Message{},
		updates:  make(chan struct{}, 1),
	}
}

// Start loads immediately, then reloads every interval until Stop is called or ctx is done.
// It returns the error of the immediate load; polling goes on regardless. Starting twice is a no-op.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	err := s.Load(ctx)
	go s.run(ctx, s.done)
	return err
}

func (s *Synchronizer) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			if err := s.Load(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("chat poll failed", err, map[string]interface{}{"self": s.selfID, "peer": s.peerID})
			}
		}
	}
}

// Stop cancels the polling and waits for it to exit. Safe to call more than once.
func (s *Synchronizer) Stop() {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// Running reports whether the polling loop is active.
func (s *Synchronizer) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.cancel != nil
}

// Load replaces the view with the persisted messages. On error the previous view is kept.
func (s *Synchronizer) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	atomic.StoreInt32(&s.state, int32(Loading))
	defer atomic.StoreInt32(&s.state, int32(Idle))

	msgs, err := s.src.History(ctx, s.selfID, s.peerID)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.messages = msgs
	}
	s.mu.Unlock()

	s.notify()
	return err
}

// Send appends the message and reloads; the view only shows it once it is persisted.
func (s *Synchronizer) Send(ctx context.Context, text string) (Message, error) {
	msg, err := s.src.Send(ctx, s.selfID, s.peerID, text)
	if err != nil {
		return Message{}, err
	}
	return msg, s.Load(ctx)
}

func (s *Synchronizer) Delete(ctx context.Context, messageID string) error {
	if err := s.src.Delete(ctx, s.selfID, s.peerID, messageID); err != nil {
		return err
	}
	return s.Load(ctx)
}

func (s *Synchronizer) Clear(ctx context.Context) error {
	if err := s.src.Clear(ctx, s.selfID, s.peerID); err != nil {
		return err
	}
	return s.Load(ctx)
}

// Messages returns a copy of the current view.
func (s *Synchronizer) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]Message, len(s.messages))
	copy(msgs, s.messages)
	return msgs
}

// Err returns the error of the last load, if it failed.
func (s *Synchronizer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Synchronizer) State() SyncState {
	return SyncState(atomic.LoadInt32(&s.state))
}

// Updates receives a signal after every load. Signals coalesce when nobody is listening.
func (s *Synchronizer) Updates() <-chan struct{} {
	return s.updates
}

func (s *Synchronizer) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

func (s *Synchronizer) SelfID() string { return s.selfID }
func (s *Synchronizer) PeerID() string { return s.peerID }
