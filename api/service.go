package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/lixenwraith/rain-ambience/status"
)

const shutdownTimeout = 2 * time.Second

// HTTPService runs the status API as a Service
type HTTPService struct {
	addr    string
	origins []string
	provide func() Controller
	ctrl    Controller

	registry *status.Registry
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// NewService creates the API service
// provide is called during Start; the hub runs every Init before any Start, so
// the mixer exists by then even though assets may still be loading
func NewService(addr string, origins []string, provide func() Controller) *HTTPService {
	return &HTTPService{addr: addr, origins: origins, provide: provide}
}

// Name implements Service
func (s *HTTPService) Name() string {
	return "http"
}

// Dependencies implements Service
// Only status, so the API is up while the audio service loads
func (s *HTTPService) Dependencies() []string {
	return []string{"status"}
}

// Init implements Service
func (s *HTTPService) Init(args ...any) error {
	for _, arg := range args {
		if reg, ok := arg.(*status.Registry); ok {
			s.registry = reg
		}
	}
	if s.provide == nil {
		return errors.New("api: no controller provider")
	}
	return nil
}

// Start implements Service
// Binds synchronously so address errors surface here
func (s *HTTPService) Start() error {
	s.ctrl = s.provide()
	if s.ctrl == nil {
		return errors.New("api: no controller")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           NewRouter(s.ctrl, s.registry, s.origins, time.Now()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[api] serve: %v", err)
		}
	}()
	log.Printf("[api] listening on %s", ln.Addr())
	return nil
}

// Stop implements Service
func (s *HTTPService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	<-s.done
	s.server = nil
	return err
}

// Addr returns the bound address; empty before Start
func (s *HTTPService) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
