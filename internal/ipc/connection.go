package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/danielpatrickdp/battle-trainer/internal/battle"
	"github.com/danielpatrickdp/battle-trainer/internal/decision"
)

// ErrStaleTurn is returned by Submit when the bridge has moved past the turn
// the choice was made for.
var ErrStaleTurn = errors.New("turn already advanced")

// Handler processes a received envelope. Return nil to send no reply.
// Handlers run on the read loop and must not block on oracle calls.
type Handler func(env Envelope) (*Envelope, error)

// Connection is one battle bridge talking to the trainer. It tracks the live
// turn and the latest request so a running decision can detect staleness.
type Connection struct {
	conn     net.Conn
	handlers map[string]Handler

	wmu sync.Mutex

	mu   sync.RWMutex
	turn int
	view battle.View
}

func NewConnection(conn net.Conn, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		conn:     conn,
		handlers: handlers,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteEnvelope(c.conn, env)
}

// Turn returns the turn number of the latest request.
func (c *Connection) Turn() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn
}

// View returns the latest request view.
func (c *Connection) View() battle.View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// Submit sends cmds as the choice for turn. The live turn cannot move while
// the choice is written, so a choice never goes out under a later turn.
func (c *Connection) Submit(ctx context.Context, turn int, cmds []decision.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.turn != turn {
		return fmt.Errorf("%w: choice for turn %d, live turn %d", ErrStaleTurn, turn, c.turn)
	}
	return c.Send(TypeChoose, ChooseMessage{Turn: turn, Choice: decision.FormatChoice(cmds)})
}

// observe records a request before its handler runs, so the live turn moves
// the moment the bridge reports it.
func (c *Connection) observe(env Envelope) error {
	var msg RequestMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		return fmt.Errorf("unmarshal request: %w", err)
	}
	c.mu.Lock()
	c.turn = msg.View.Turn
	c.view = msg.View
	c.mu.Unlock()
	return nil
}

// ReadLoop blocks until the connection closes or errors. It owns the conn lifetime
// so callers don't need to track cleanup.
func (c *Connection) ReadLoop() {
	defer c.conn.Close()

	for {
		env, err := ReadEnvelope(c.conn)
		if err != nil {
			log.Printf("[IPC] connection read ended: %v", err)
			return
		}

		if env.Type == TypeRequest {
			if err := c.observe(env); err != nil {
				log.Printf("[IPC] %v", err)
				continue
			}
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			log.Printf("[IPC] no handler for message type %q", env.Type)
			continue
		}

		resp, err := handler(env)
		if err != nil {
			log.Printf("[IPC] handler error (%s): %v", env.Type, err)
			continue
		}

		if resp != nil {
			c.wmu.Lock()
			err := WriteEnvelope(c.conn, *resp)
			c.wmu.Unlock()
			if err != nil {
				log.Printf("[IPC] failed to send %s: %v", resp.Type, err)
				return
			}
		}
	}
}

// Close closes the underlying connection, ending ReadLoop.
func (c *Connection) Close() error {
	return c.conn.Close()
}
