package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/danielpatrickdp/battle-trainer/internal/ipc"
	"github.com/danielpatrickdp/battle-trainer/internal/orchestrator"
)

// SessionFactory builds the session for a battle once the bridge has said hello.
type SessionFactory func(hello ipc.HelloMessage, client orchestrator.Client) *orchestrator.Session

// Agent owns the decision-making for a single bridge connection.
type Agent struct {
	Conn          *ipc.Connection
	newSession    SessionFactory
	defaultSelect int

	ctx context.Context
	wg  sync.WaitGroup

	mu      sync.Mutex
	session *orchestrator.Session
	running *turnRun
}

// turnRun is the background work started for one request.
type turnRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func New(ctx context.Context, conn *ipc.Connection, newSession SessionFactory, defaultSelect int) *Agent {
	return &Agent{Conn: conn, newSession: newSession, defaultSelect: defaultSelect, ctx: ctx}
}

// Register installs the agent's handlers on its connection.
func (a *Agent) Register() {
	a.Conn.RegisterHandler(ipc.TypeHello, a.HandleHello)
	a.Conn.RegisterHandler(ipc.TypeRequest, a.HandleRequest)
	a.Conn.RegisterHandler(ipc.TypeEnd, a.HandleEnd)
}

// HandleHello completes the handshake so the bridge knows the trainer is ready.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return nil, fmt.Errorf("unmarshal hello: %w", err)
	}
	if hello.Battle == "" {
		return nil, errors.New("hello without battle tag")
	}

	a.mu.Lock()
	a.session = a.newSession(hello, a.Conn)
	a.mu.Unlock()
	log.Printf("[IPC] battle %s opened (player=%s format=%s series=%s)", hello.Battle, hello.Player, hello.Format, hello.SeriesKey)

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// HandleRequest classifies the request the connection just recorded and
// decides it in the background; the choice goes out as its own message.
// A newer request supersedes the one still being decided: the old turn is
// cancelled and has unwound before the new one starts.
func (a *Agent) HandleRequest(env ipc.Envelope) (*ipc.Envelope, error) {
	s := a.current()
	if s == nil {
		return nil, errors.New("request before hello")
	}
	cond, decide := orchestrator.Classify(a.Conn.View().Request, a.defaultSelect)

	ctx, run, prev := a.supersede()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(run.done)
		defer run.cancel()
		if prev != nil {
			<-prev.done
		}
		if !decide || ctx.Err() != nil {
			return
		}
		out, err := s.HandleTurn(ctx, cond)
		switch {
		case errors.Is(err, orchestrator.ErrTurnInFlight):
			log.Printf("[IPC] %s: request arrived while a turn was in flight, skipped", s.Tag())
		case errors.Is(err, context.Canceled):
			log.Printf("[IPC] %s: turn superseded", s.Tag())
		case err != nil:
			log.Printf("[IPC] %s: turn %s: %v", s.Tag(), out, err)
		}
	}()
	return nil, nil
}

// supersede cancels the run in flight, if any, and registers a new one in its
// place. It returns the new run's context, the new run and the previous run.
func (a *Agent) supersede() (context.Context, *turnRun, *turnRun) {
	ctx, cancel := context.WithCancel(a.ctx)
	run := &turnRun{cancel: cancel, done: make(chan struct{})}

	a.mu.Lock()
	prev := a.running
	a.running = run
	a.mu.Unlock()

	if prev != nil {
		prev.cancel()
	}
	return ctx, run, prev
}

// HandleEnd closes the battle once any running turn has finished.
func (a *Agent) HandleEnd(env ipc.Envelope) (*ipc.Envelope, error) {
	var end ipc.EndMessage
	if err := json.Unmarshal(env.Data, &end); err != nil {
		return nil, fmt.Errorf("unmarshal end: %w", err)
	}
	s := a.current()
	if s == nil {
		return nil, errors.New("end before hello")
	}

	_, run, prev := a.supersede()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(run.done)
		defer run.cancel()
		if prev != nil {
			<-prev.done
		}
		if err := s.EndBattle(a.ctx, end.Won); err != nil {
			log.Printf("[IPC] %s: end battle: %v", s.Tag(), err)
		}
	}()

	ack, err := ipc.NewEnvelope(ipc.TypeAck, ipc.AckMessage{Status: "ok"})
	if err != nil {
		return nil, err
	}
	return &ack, nil
}

// Wait blocks until every background turn and battle end has returned.
func (a *Agent) Wait() {
	a.wg.Wait()
}

func (a *Agent) current() *orchestrator.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}
