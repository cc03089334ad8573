// Package transport serves registered tools over NATS request/reply.
//
// The server queue-subscribes to one subject per tool data tag. Every message
// body is the tool's argument document and the reply is the tool's JSON
// result. Messages are handled concurrently up to MaxInFlight.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/semaphore"

	"llmtools/internal/config"
	"llmtools/internal/logging"
	"llmtools/internal/tools"
)

var (
	// ErrAlreadyStarted is returned by Start on a running server.
	ErrAlreadyStarted = errors.New("transport already started")
	// ErrNoURL is returned when no NATS URL is configured.
	ErrNoURL = errors.New("nats url not configured")

	errShuttingDown = errors.New("transport shutting down")
)

// Executor runs a tool by name. *tools.Registry implements it.
type Executor interface {
	Execute(ctx context.Context, name string, args json.RawMessage) (*tools.ToolResult, error)
}

// Options configures a Server.
type Options struct {
	URL          string
	Subject      string
	Queue        string
	MaxInFlight  int
	DrainTimeout time.Duration
	// Tool is the registry name messages are dispatched to.
	Tool string
}

// OptionsFromConfig maps the nats config section onto Options for tool.
func OptionsFromConfig(c config.NATSConfig, tool string) Options {
	return Options{
		URL:          c.URL,
		Subject:      c.Subject,
		Queue:        c.Queue,
		MaxInFlight:  c.MaxInFlight,
		DrainTimeout: c.GetDrainTimeout(),
		Tool:         tool,
	}
}

// Server dispatches NATS messages to a tool.
type Server struct {
	opts Options
	exec Executor
	sem  *semaphore.Weighted

	mu       sync.Mutex
	conn     *nats.Conn
	sub      *nats.Subscription
	closed   chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	stopping bool
	wg       sync.WaitGroup
}

// NewServer creates a server. Zero-valued options fall back to defaults.
func NewServer(opts Options, exec Executor) *Server {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 16
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 10 * time.Second
	}
	if opts.Queue == "" {
		opts.Queue = "llmtools"
	}
	return &Server{
		opts: opts,
		exec: exec,
		sem:  semaphore.NewWeighted(int64(opts.MaxInFlight)),
	}
}

// Start connects and subscribes. Handlers run on a context detached from
// ctx, canceled only when Shutdown gives up waiting.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return ErrAlreadyStarted
	}
	if s.opts.URL == "" {
		return ErrNoURL
	}

	closed := make(chan struct{})
	conn, err := nats.Connect(s.opts.URL,
		nats.Name("llmtools"),
		nats.DrainTimeout(s.opts.DrainTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.TransportWarn("disconnected from NATS: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logging.Transport("reconnected to NATS at %s", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) { close(closed) }),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", s.opts.URL, err)
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))

	sub, err := conn.QueueSubscribe(s.opts.Subject, s.opts.Queue, s.onMessage)
	if err != nil {
		s.cancel()
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.opts.Subject, err)
	}

	s.conn, s.sub, s.closed = conn, sub, closed
	s.stopping = false
	logging.Transport("serving %s on %s (queue=%s, max_in_flight=%d)",
		s.opts.Tool, s.opts.Subject, s.opts.Queue, s.opts.MaxInFlight)
	return nil
}

// onMessage runs on the subscription's dispatch goroutine. Blocking on the
// semaphore pushes back on NATS when MaxInFlight handlers are busy.
func (s *Server) onMessage(msg *nats.Msg) {
	if err := s.sem.Acquire(s.ctx, 1); err != nil {
		s.respond(msg, []byte(tools.ErrorJSON(fmt.Errorf("transport shutting down: %w", err))))
		return
	}
	if !s.track() {
		s.sem.Release(1)
		s.respond(msg, []byte(tools.ErrorJSON(errShuttingDown)))
		return
	}
	go func() {
		defer s.wg.Done()
		defer s.sem.Release(1)
		s.respond(msg, s.handle(s.ctx, msg.Data))
	}()
}

// track registers a handler unless Shutdown has started waiting for them.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

// stopTracking refuses new handlers so that wg.Wait cannot race wg.Add.
func (s *Server) stopTracking() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
}

func (s *Server) respond(msg *nats.Msg, reply []byte) {
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(reply); err != nil {
		logging.TransportError("failed to reply on %s: %v", msg.Reply, err)
	}
}

// handle executes one message body and renders the reply.
func (s *Server) handle(ctx context.Context, data []byte) []byte {
	res, err := s.exec.Execute(ctx, s.opts.Tool, data)
	if err != nil {
		logging.TransportWarn("%s rejected message: %v", s.opts.Tool, err)
		return []byte(tools.ErrorJSON(err))
	}
	logging.TransportDebug("%s handled message in %dms", s.opts.Tool, res.DurationMs)
	return []byte(res.Result)
}

// Subject returns the subscribed subject.
func (s *Server) Subject() string { return s.opts.Subject }

// Shutdown stops receiving, waits for in-flight handlers to reply and
// drains the connection. When ctx expires first, outstanding handlers are
// canceled and the connection is closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	conn, sub, closed, cancel := s.conn, s.sub, s.closed, s.cancel
	s.conn, s.sub = nil, nil
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	defer cancel()

	var errs []error
	if err := sub.Drain(); err != nil {
		errs = append(errs, fmt.Errorf("drain subscription: %w", err))
	}
	if err := s.waitSubscription(ctx, sub); err != nil {
		errs = append(errs, err)
	}

	s.stopTracking()
	handlers := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(handlers)
	}()
	select {
	case <-handlers:
	case <-ctx.Done():
		cancel()
		<-handlers
		errs = append(errs, fmt.Errorf("waiting for handlers: %w", ctx.Err()))
	}

	if err := conn.Drain(); err != nil {
		errs = append(errs, fmt.Errorf("drain connection: %w", err))
		conn.Close()
	}
	select {
	case <-closed:
	case <-ctx.Done():
		conn.Close()
		errs = append(errs, fmt.Errorf("waiting for connection close: %w", ctx.Err()))
	}

	logging.Transport("transport on %s stopped", s.opts.Subject)
	return errors.Join(errs...)
}

// waitSubscription blocks until every pending message has been handed to
// onMessage, so no new handler can start after it returns.
func (s *Server) waitSubscription(ctx context.Context, sub *nats.Subscription) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for sub.IsValid() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
			return fmt.Errorf("waiting for subscription drain: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}
