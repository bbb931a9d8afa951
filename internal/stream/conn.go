package stream

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dwaltig/agentdeck/internal/metrics"
	"github.com/dwaltig/agentdeck/internal/types"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// State describes the lifecycle of the event-stream connection.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

const (
	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second

	frameBuffer = 256
)

// Conn owns the live event-stream connection. It dials, detects loss,
// reconnects with capped exponential backoff and jitter, and delivers
// frames in arrival order on a channel. One Conn per console instance;
// no other component writes to the socket.
type Conn struct {
	url    string
	frames chan types.Frame
	logger zerolog.Logger
	dialer *websocket.Dialer

	mu      sync.Mutex
	ws      *websocket.Conn
	state   State
	closed  bool
	onState func(State)

	reconnects int64

	// Backoff bounds, overridable in tests.
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewConn creates a connection manager for the given stream URL.
// http:// and https:// URLs are rewritten to their websocket schemes.
func NewConn(url string, logger zerolog.Logger) *Conn {
	if len(url) > 4 && url[:4] == "http" {
		url = "ws" + url[4:]
	}
	return &Conn{
		url:          url,
		frames:       make(chan types.Frame, frameBuffer),
		logger:       logger.With().Str("component", "stream").Logger(),
		dialer:       websocket.DefaultDialer,
		state:        StateConnecting,
		initialDelay: initialReconnectDelay,
		maxDelay:     maxReconnectDelay,
	}
}

// Frames returns the channel on which inbound frames arrive, in the
// order the stream delivered them. The channel is closed once Run
// returns, so consumers ranging over it exit on shutdown.
func (c *Conn) Frames() <-chan types.Frame {
	return c.frames
}

// OnStateChange registers a callback invoked on every state transition.
// Consumers use the transition to Open after a loss as the signal to
// refresh full state, since the stream is lossy across disconnects.
func (c *Conn) OnStateChange(fn func(State)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the stream is currently open.
func (c *Conn) IsConnected() bool {
	return c.State() == StateOpen
}

// Reconnects returns how many reconnect attempts have been made since
// the first successful or failed dial.
func (c *Conn) Reconnects() int64 {
	return atomic.LoadInt64(&c.reconnects)
}

// Run dials and maintains the connection until the context is cancelled
// or Close is called. Reconnection is unlimited; connection errors are
// logged, never returned.
func (c *Conn) Run(ctx context.Context) {
	// Run is the only writer; closing here lets dispatch loops ranging
	// over Frames finish on shutdown.
	defer close(c.frames)

	delay := c.initialDelay
	first := true

	for {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		select {
		case <-ctx.Done():
			c.Close()
			return
		default:
		}

		if !first {
			atomic.AddInt64(&c.reconnects, 1)
			metrics.Get().RecordReconnect()
		}

		if err := c.dial(); err != nil {
			first = false
			c.logger.Debug().Err(err).Dur("retry_in", delay).Msg("stream dial failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter(delay)):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
			continue
		}

		// Reset backoff once a connection is established.
		delay = c.initialDelay
		first = false
		c.setState(StateOpen)

		c.readLoop(ctx)

		c.mu.Lock()
		if c.ws != nil {
			c.ws.Close()
			c.ws = nil
		}
		stop := c.closed
		c.mu.Unlock()
		if stop {
			return
		}
		c.setState(StateConnecting)
		c.logger.Warn().Msg("stream connection lost, reconnecting")
	}
}

// Close permanently shuts the connection down and prevents reconnects.
func (c *Conn) Close() {
	c.mu.Lock()
	alreadyClosed := c.closed
	c.closed = true
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()

	if !alreadyClosed {
		c.setState(StateClosed)
	}
}

func (c *Conn) dial() error {
	c.setState(StateConnecting)

	ws, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.ws = ws
	c.mu.Unlock()

	c.logger.Debug().Str("url", c.url).Msg("stream connected")
	return nil
}

// readLoop consumes messages until the connection drops. Frames that do
// not parse as an envelope are dropped silently; ordering of valid
// frames is preserved by the single reader.
func (c *Conn) readLoop(ctx context.Context) {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return
	}

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var frame types.Frame
		if err := json.Unmarshal(message, &frame); err != nil || frame.Type == "" {
			c.logger.Debug().Msg("dropping malformed frame")
			continue
		}

		select {
		case c.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	fn := c.onState
	c.mu.Unlock()

	if changed && fn != nil {
		fn(s)
	}
}

// jitter spreads reconnect attempts to avoid synchronized dials against
// a recovering backend.
func jitter(d time.Duration) time.Duration {
	half := int64(d / 2)
	if half <= 0 {
		return d
	}
	return time.Duration(half + rand.Int63n(half+1))
}
