// Package devserver simulates the task backend locally: it accepts spec
// uploads, decomposes them into routed tasks and pushes their progress to
// every connected board.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/felixgeelhaar/flowboard/internal/domain/board"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

const (
	ProjectsPath = "/projects"
	TasksPath    = "/ws/tasks"

	maxSpecSize = 10 << 20
)

// Roster is the pool human-routed tasks are assigned from.
var Roster = []string{"Jane Doe", "Carlos R.", "Priya N."}

var acceptedTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"application/pdf": true,
}

// ProjectResponse is the body of an accepted upload. Tasks is always empty;
// the decomposed tasks arrive on the push channel.
type ProjectResponse struct {
	ProjectID string       `json:"project_id"`
	Tasks     []board.Task `json:"tasks"`
}

// Server is the simulated backend.
type Server struct {
	echo     *echo.Echo
	hub      *hub
	logger   logrus.FieldLogger
	step     time.Duration
	queue    chan board.Task
	upgrader websocket.Upgrader
	pick     func(n int) int
}

// Option configures a Server.
type Option func(*Server)

// WithStep sets how long the worker spends on each status transition.
func WithStep(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.step = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a simulator with its routes registered.
func New(opts ...Option) *Server {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	s := &Server{
		logger: discard,
		step:   2 * time.Second,
		queue:  make(chan board.Task, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		pick: rand.IntN,
	}
	for _, fn := range opts {
		fn(s)
	}
	s.hub = newHub(s.logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.POST(ProjectsPath, s.createProject())
	e.GET(TasksPath, s.streamTasks())
	s.echo = e
	return s
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Clients returns the number of connected boards.
func (s *Server) Clients() int {
	return s.hub.count()
}

// Start serves on addr and runs the worker until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("devserver listening")
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown devserver: %w", err)
	}
	return nil
}

// Run advances queued tasks one at a time until ctx is cancelled. Each task
// gets a status-only update when work starts and a status+result update
// when it finishes.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-s.queue:
			if !s.sleep(ctx) {
				return
			}
			started := board.TaskUpdate{ID: t.ID, Status: board.Ptr(board.StatusInProgress)}
			if t.RoutedTo == board.RouteAI {
				started.Owner = board.Ptr(agentName(t.ID))
			}
			s.publish(started)

			if !s.sleep(ctx) {
				return
			}
			s.publish(board.TaskUpdate{
				ID:     t.ID,
				Status: board.Ptr(board.StatusDone),
				Result: board.Ptr(resultFor(t)),
			})
		}
	}
}

func (s *Server) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.step)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Server) publish(u board.TaskUpdate) {
	data, err := json.Marshal(u)
	if err != nil {
		s.logger.WithError(err).Error("encode task update")
		return
	}
	s.hub.broadcast(data)
}

func agentName(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return "agent-" + id
}

func resultFor(t board.Task) string {
	if t.RoutedTo == board.RouteHuman {
		return fmt.Sprintf("Completed by %s", t.Owner)
	}
	return fmt.Sprintf("Draft ready for %q", t.Title)
}

func (s *Server) createProject() echo.HandlerFunc {
	return func(c echo.Context) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": "file field required"})
		}
		if !acceptedTypes[fh.Header.Get("Content-Type")] {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Unsupported file type"})
		}
		f, err := fh.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "unreadable upload"})
		}
		defer f.Close()
		data, err := io.ReadAll(io.LimitReader(f, maxSpecSize))
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "unreadable upload"})
		}

		text, err := specText(fh.Header.Get("Content-Type"), data)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "Could not read PDF"})
		}

		projectID := uuid.NewString()
		s.logger.WithFields(logrus.Fields{
			"project_id": projectID,
			"file":       fh.Filename,
			"request_id": c.Request().Header.Get("X-Request-ID"),
		}).Info("new project")

		go s.process(projectID, text)
		return c.JSON(http.StatusAccepted, ProjectResponse{ProjectID: projectID, Tasks: []board.Task{}})
	}
}

// process routes and enqueues every task, then announces them in one frame.
func (s *Server) process(projectID, spec string) {
	tasks := Analyze(spec)
	for i := range tasks {
		if tasks[i].RoutedTo == board.RouteHuman {
			tasks[i].Owner = Roster[s.pick(len(Roster))]
		}
	}
	if len(tasks) == 0 {
		s.logger.WithField("project_id", projectID).Warn("spec produced no tasks")
		return
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		s.logger.WithError(err).Error("encode tasks")
		return
	}
	s.hub.broadcast(data)

	for _, t := range tasks {
		select {
		case s.queue <- t:
		default:
			s.logger.WithField("task_id", t.ID).Warn("worker queue full, task left queued")
		}
	}
	s.logger.WithFields(logrus.Fields{
		"project_id": projectID,
		"tasks":      len(tasks),
	}).Info("project processed")
}

func (s *Server) streamTasks() echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return nil
		}
		client := s.hub.add(conn)
		log := s.logger.WithField("client_id", c.Request().Header.Get("X-Client-ID"))
		log.Debug("board connected")

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.hub.remove(client)
		log.Debug("board disconnected")
		return nil
	}
}
