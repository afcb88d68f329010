package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
)

// Acceptor accepts incoming packet connections.
type Acceptor interface {
	AcceptPackets() (PacketReadWriter, error)
	io.Closer
}

// Server is an l1.Registrar for stations connecting directly. Every
// accepted connection becomes a session; commands from all sessions are
// posted to the loop and events go to all of them.
type Server struct {
	Acceptor Acceptor

	lock     sync.Mutex
	sessions map[*Registrar]struct{}
}

// NewServer creates a Server.
func NewServer(acceptor Acceptor) *Server {
	return &Server{Acceptor: acceptor, sessions: make(map[*Registrar]struct{})}
}

// SendEvent implements Registrar.
func (s *Server) SendEvent(ctx context.Context, msg fx.Message) error {
	s.lock.Lock()
	sessions := make([]*Registrar, 0, len(s.sessions))
	for r := range s.sessions {
		sessions = append(sessions, r)
	}
	s.lock.Unlock()
	var errs fx.AggregatedError
	for _, r := range sessions {
		errs.Add(r.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// Sessions returns the number of connected sessions.
func (s *Server) Sessions() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.sessions)
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(loop *fx.Loop) {
	loop.AddRunnable(s)
}

// Run implements Runnable.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Acceptor.Close()
	}()
	for {
		rw, err := s.Acceptor.AcceptPackets()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		r := NewRegistrar(rw)
		s.lock.Lock()
		s.sessions[r] = struct{}{}
		s.lock.Unlock()
		glog.V(1).Infof("station connected, %d sessions", s.Sessions())
		go s.serve(ctx, r)
	}
}

func (s *Server) serve(ctx context.Context, r *Registrar) {
	err := r.Run(ctx)
	s.lock.Lock()
	delete(s.sessions, r)
	s.lock.Unlock()
	glog.V(1).Infof("station disconnected (%d events dropped): %v", r.Dropped(), err)
}
