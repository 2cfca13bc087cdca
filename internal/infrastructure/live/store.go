// Package live keeps an in-memory task board synchronized with the backend's
// push channel.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/flowboard/internal/domain/board"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDisposed is returned by Connect after Disconnect has been called.
	ErrDisposed = errors.New("task store disposed")
	// ErrAlreadyConnected is returned by Connect while a channel is open or opening.
	ErrAlreadyConnected = errors.New("task store already connected")
)

// EventKind says what changed in the store.
type EventKind int

const (
	EventSnapshot EventKind = iota
	EventConnection
)

// Event is delivered to the WithOnChange callback.
type Event struct {
	Kind      EventKind
	Result    board.ApplyResult
	State     ConnState
	Connected bool
	Err       error
}

// Store owns the canonical task collection for one channel session. The
// collection is written only by HandleMessage, which the reader goroutine
// calls for each frame in arrival order.
type Store struct {
	url      string
	clientID string
	opts     options

	mu        sync.RWMutex
	tasks     *board.Collection
	fsm       *connMachine
	conn      *websocket.Conn
	disposed  bool
	anomalies map[string]struct{}
	readerCtx context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewStore creates a disconnected store for the given channel URL.
func NewStore(url string, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	fsm, err := newConnMachine(url)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		url:       url,
		clientID:  uuid.NewString(),
		opts:      o,
		tasks:     board.NewCollection(),
		fsm:       fsm,
		anomalies: make(map[string]struct{}),
		readerCtx: ctx,
		cancel:    cancel,
	}, nil
}

// ClientID identifies this store to the backend in the handshake.
func (s *Store) ClientID() string {
	return s.clientID
}

// Connect dials the push channel and starts reading from it. It returns once
// the channel is open or the dial has failed.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	switch s.fsm.current() {
	case ConnConnecting, ConnOpen:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	if s.readerRunning() {
		// A dropped reader may still be about to redial.
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.fsm.fire(eventDial)
	s.mu.Unlock()

	conn, err := s.dial(ctx)
	if err != nil {
		s.transition(eventFailed, err)
		return fmt.Errorf("connect %s: %w", s.url, err)
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		_ = conn.Close()
		return ErrDisposed
	}
	s.conn = conn
	s.fsm.fire(eventOpened)
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	s.opts.logger.WithField("url", s.url).Info("push channel connected")
	s.emit(Event{Kind: EventConnection, State: ConnOpen, Connected: true})

	go s.readLoop(conn, done)
	return nil
}

// readerRunning reports whether the last reader goroutine has not exited.
// Callers hold s.mu.
func (s *Store) readerRunning() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Store) dial(ctx context.Context) (*websocket.Conn, error) {
	header := s.opts.header.Clone()
	header.Set("X-Client-ID", s.clientID)
	conn, resp, err := s.opts.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("handshake status %d: %w", resp.StatusCode, err)
		}
		return nil, err
	}
	return conn, nil
}

func (s *Store) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !s.dropped(conn, err) {
				return
			}
			if !s.opts.reconnect {
				return
			}
			next, err := s.redial()
			if err != nil {
				s.opts.logger.WithError(err).Warn("push channel reconnect abandoned")
				return
			}
			conn = next
			continue
		}
		if msgType != websocket.TextMessage {
			s.opts.logger.WithField("type", msgType).Debug("dropping non-text frame")
			continue
		}
		_ = s.HandleMessage(data)
	}
}

// dropped records a channel closure. It returns false when the closure was
// caused by Disconnect.
func (s *Store) dropped(conn *websocket.Conn, cause error) bool {
	s.mu.Lock()
	if s.disposed || s.conn != conn {
		s.mu.Unlock()
		return false
	}
	s.conn = nil
	s.fsm.fire(eventDropped)
	s.mu.Unlock()
	_ = conn.Close()

	entry := s.opts.logger.WithField("url", s.url)
	if websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		entry.Info("push channel closed by server")
		cause = nil
	} else {
		entry.WithError(cause).Warn("push channel dropped")
	}
	s.emit(Event{Kind: EventConnection, State: ConnClosed, Err: cause})
	return true
}

func (s *Store) redial() (*websocket.Conn, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil, ErrDisposed
	}
	s.fsm.fire(eventDial)
	s.mu.Unlock()
	s.emit(Event{Kind: EventConnection, State: ConnConnecting})

	r := retry.New[*websocket.Conn](retry.Config{
		MaxAttempts:   s.opts.maxAttempts,
		InitialDelay:  s.opts.initialDelay,
		BackoffPolicy: retry.BackoffExponential,
	})
	conn, err := r.Do(s.readerCtx, func(ctx context.Context) (*websocket.Conn, error) {
		s.opts.logger.WithField("url", s.url).Debug("re-dialing push channel")
		return s.dial(ctx)
	})
	if err != nil {
		s.transition(eventFailed, err)
		return nil, err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, ErrDisposed
	}
	s.conn = conn
	s.fsm.fire(eventOpened)
	s.mu.Unlock()

	s.opts.logger.WithField("url", s.url).Info("push channel reconnected")
	s.emit(Event{Kind: EventConnection, State: ConnOpen, Connected: true})
	return conn, nil
}

func (s *Store) transition(event string, cause error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.fsm.fire(event)
	state := s.fsm.current()
	s.mu.Unlock()
	s.emit(Event{Kind: EventConnection, State: state, Connected: state == ConnOpen, Err: cause})
}

// HandleMessage decodes one push frame and merges it into the collection.
// Malformed frames are dropped and reported with board.ErrMalformedMessage;
// the collection is left untouched. Frames arriving after Disconnect are
// ignored.
func (s *Store) HandleMessage(payload []byte) error {
	updates, err := board.DecodePayload(payload)
	if err != nil {
		s.opts.logger.WithError(err).Debug("dropping push frame")
		return err
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	res := s.tasks.Apply(updates...)
	var unrecognized []board.Task
	for _, u := range updates {
		t, ok := s.tasks.Get(u.ID)
		if !ok || t.Status.IsKnown() {
			continue
		}
		if _, seen := s.anomalies[t.ID]; seen {
			continue
		}
		s.anomalies[t.ID] = struct{}{}
		unrecognized = append(unrecognized, t)
	}
	state := s.fsm.current()
	s.mu.Unlock()

	for _, t := range unrecognized {
		s.opts.logger.WithFields(logrus.Fields{
			"task_id": t.ID,
			"status":  t.Status.String(),
		}).Warn("task has unrecognized status")
	}
	if res.Changed() {
		s.emit(Event{Kind: EventSnapshot, Result: res, State: state, Connected: state == ConnOpen})
	}
	return nil
}

// Disconnect tears the store down. It closes the channel, waits for the
// reader to exit and guarantees no later frame mutates the collection. It is
// safe to call more than once.
func (s *Store) Disconnect() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.fsm.fire(eventDispose)
	conn := s.conn
	s.conn = nil
	done := s.done
	s.mu.Unlock()

	s.cancel()

	var closeErr error
	if conn != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		closeErr = conn.Close()
	}
	if done != nil {
		<-done
	}

	s.opts.logger.WithField("url", s.url).Debug("task store disposed")
	s.emit(Event{Kind: EventConnection, State: ConnDisposed})
	if closeErr != nil {
		return fmt.Errorf("close push channel: %w", closeErr)
	}
	return nil
}

// Snapshot returns a copy of the ordered task collection.
func (s *Store) Snapshot() []board.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks.Tasks()
}

// Board returns the current snapshot grouped into stage lanes.
func (s *Store) Board() board.Board {
	return board.GroupByStatus(s.Snapshot())
}

// Connected reports whether the push channel is open.
func (s *Store) Connected() bool {
	return s.State() == ConnOpen
}

// State returns the channel lifecycle state.
func (s *Store) State() ConnState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fsm.current()
}

func (s *Store) emit(e Event) {
	if s.opts.onChange != nil {
		s.opts.onChange(e)
	}
}
