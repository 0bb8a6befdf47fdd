// Package devserver is an in-memory stand-in for the CTF platform's
// container API. It hands out fake connection details without starting any
// real containers, so the client can be exercised locally.
package devserver

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/Iron-Ham/chalbox/internal/config"
	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/logging"
)

const (
	// firstPort is the first host port handed out.
	firstPort = 30000

	// anonymousOwner owns containers requested without a session cookie.
	anonymousOwner = "anonymous"

	// reapInterval is how often expired containers are collected.
	reapInterval = 10 * time.Second

	shutdownTimeout = 5 * time.Second
)

// per-minute limits applied to each endpoint when rate limiting is on
var routeLimits = map[container.Operation]int{
	container.OpView:    15,
	container.OpRequest: 6,
	container.OpRenew:   6,
	container.OpStop:    10,
}

// instance is one fake container.
type instance struct {
	ID      string
	Port    int
	Expires int64
}

// Server serves the four container endpoints from memory.
type Server struct {
	app    *fiber.App
	cfg    config.DevConfig
	logger *logging.Logger
	now    func() time.Time

	mu         sync.Mutex
	challenges map[int]struct{}
	containers map[string]map[int]*instance
	nextPort   int
}

// Option configures a Server.
type Option func(*Server)

// WithChallenges restricts the known challenges. Without it every positive
// id is accepted.
func WithChallenges(ids ...int) Option {
	return func(s *Server) {
		if len(ids) == 0 {
			return
		}
		s.challenges = make(map[int]struct{}, len(ids))
		for _, id := range ids {
			s.challenges[id] = struct{}{}
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now for expiry bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a server from the dev configuration.
func New(cfg config.DevConfig, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		logger:     logging.NopLogger(),
		now:        time.Now,
		containers: make(map[string]map[int]*instance),
		nextPort:   firstPort,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "chalbox dev backend",
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.routes()
	return s
}

// App returns the underlying fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	api := s.app.Group("/containers/api", s.requireCSRF, s.resolveOwner)

	handlers := map[container.Operation]fiber.Handler{
		container.OpView:    s.handleView,
		container.OpRequest: s.handleRequest,
		container.OpRenew:   s.handleRenew,
		container.OpStop:    s.handleStop,
	}

	for _, op := range container.Operations() {
		path := op.Path()[len("/containers/api"):]
		if s.cfg.RateLimit {
			api.Post(path, s.limit(routeLimits[op]), handlers[op])
			continue
		}
		api.Post(path, handlers[op])
	}
}

func (s *Server) limit(perMinute int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return ownerOf(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			// The platform answers throttled calls with an HTML page.
			return c.Status(fiber.StatusTooManyRequests).SendString("Too Many Requests")
		},
	})
}

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.reapLoop(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listener(ln)
	}()

	s.logger.Info("dev backend listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return s.app.ShutdownWithContext(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Reap(); n > 0 {
				s.logger.Info("reaped expired containers", "count", n)
			}
		}
	}
}

// Reap removes containers whose expiry has passed and returns how many.
func (s *Server) Reap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reapLocked()
}

func (s *Server) reapLocked() int {
	now := s.now().Unix()
	removed := 0
	for owner, byChallenge := range s.containers {
		for id, inst := range byChallenge {
			if inst.Expires-now < 0 {
				delete(byChallenge, id)
				removed++
			}
		}
		if len(byChallenge) == 0 {
			delete(s.containers, owner)
		}
	}
	return removed
}

// Running returns how many containers owner currently holds.
func (s *Server) Running(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapLocked()
	return len(s.containers[owner])
}
