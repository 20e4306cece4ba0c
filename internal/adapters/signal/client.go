package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dkeye/voicecall/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

var (
	ErrNotConnected = errors.New("not connected to hub")
	ErrRejected     = errors.New("rejected by hub")
	ErrBackpressure = errors.New("backpressure")
)

type Options struct {
	// URL of the hub websocket endpoint, e.g. ws://host:8080/api/ws/signal.
	URL         string
	UserID      domain.UserID
	DisplayName string
	// Rooms are joined on every (re)connect.
	Rooms      []domain.RoomID
	Dialer     *websocket.Dialer
	RetryDelay time.Duration
	Buffer     int
}

type reply struct {
	env Envelope
}

// inbound is the union of every message the hub sends.
type inbound struct {
	Envelope
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
}

// Client is a SignalingChannel and IdentityProvider backed by one hub
// websocket. It reconnects until its Run context is done.
type Client struct {
	opts Options

	invites    chan domain.Invite
	answers    chan domain.Answer
	hangups    chan domain.Hangup
	candidates chan domain.Candidates

	mu       sync.Mutex
	link     *link
	pending  map[string]chan reply
	identity *domain.Identity
	rooms    map[domain.RoomID]struct{}
}

func NewClient(opts Options) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	c := &Client{
		opts:       opts,
		invites:    make(chan domain.Invite, opts.Buffer),
		answers:    make(chan domain.Answer, opts.Buffer),
		hangups:    make(chan domain.Hangup, opts.Buffer),
		candidates: make(chan domain.Candidates, opts.Buffer),
		pending:    make(map[string]chan reply),
		rooms:      make(map[domain.RoomID]struct{}),
	}
	for _, r := range opts.Rooms {
		c.rooms[r] = struct{}{}
	}
	return c
}

func (c *Client) Invites() <-chan domain.Invite        { return c.invites }
func (c *Client) Answers() <-chan domain.Answer        { return c.answers }
func (c *Client) Hangups() <-chan domain.Hangup        { return c.hangups }
func (c *Client) Candidates() <-chan domain.Candidates { return c.candidates }

// Identity reports the user the hub authenticated this connection as.
func (c *Client) Identity() (domain.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return domain.Identity{}, false
	}
	return *c.identity, true
}

func (c *Client) SendInvite(ctx context.Context, ev domain.Invite) error { return c.send(ctx, ev) }
func (c *Client) SendAnswer(ctx context.Context, ev domain.Answer) error { return c.send(ctx, ev) }
func (c *Client) SendHangup(ctx context.Context, ev domain.Hangup) error { return c.send(ctx, ev) }
func (c *Client) SendIceCandidates(ctx context.Context, ev domain.Candidates) error {
	return c.send(ctx, ev)
}

func (c *Client) send(ctx context.Context, ev domain.SignalingEvent) error {
	env, err := Encode(ev)
	if err != nil {
		return err
	}
	ack, err := c.request(ctx, env)
	if err != nil {
		return fmt.Errorf("%s: %w", env.Type, err)
	}
	log.Debug().Str("module", "signal").Str("type", env.Type).Str("call_id", string(ev.EventCallID())).Str("event_id", ack.EventID).Msg("sent")
	return nil
}

// Join subscribes to call events of roomID. The room is rejoined after a
// reconnect.
func (c *Client) Join(ctx context.Context, roomID domain.RoomID) error {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}
	if _, err := c.request(ctx, Envelope{Type: "join", RoomID: roomID}); err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	c.mu.Lock()
	c.rooms[roomID] = struct{}{}
	c.mu.Unlock()
	return nil
}

func (c *Client) Leave(ctx context.Context, roomID domain.RoomID) error {
	c.mu.Lock()
	delete(c.rooms, roomID)
	c.mu.Unlock()
	if _, err := c.request(ctx, Envelope{Type: "leave", RoomID: roomID}); err != nil {
		return fmt.Errorf("leave %s: %w", roomID, err)
	}
	return nil
}

// Rooms lists the rooms this client is subscribed to.
func (c *Client) Rooms() []domain.RoomID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.RoomID, 0, len(c.rooms))
	for r := range c.rooms {
		out = append(out, r)
	}
	return out
}

// request sends env with a fresh txn id and waits for the hub's reply.
func (c *Client) request(ctx context.Context, env Envelope) (Envelope, error) {
	env.TxnID = uuid.NewString()
	ch := make(chan reply, 1)

	c.mu.Lock()
	l := c.link
	if l == nil {
		c.mu.Unlock()
		return Envelope{}, ErrNotConnected
	}
	c.pending[env.TxnID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, env.TxnID)
		c.mu.Unlock()
	}()

	b, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, err
	}
	if err := l.enqueue(b); err != nil {
		return Envelope{}, err
	}

	select {
	case r, ok := <-ch:
		if !ok {
			return Envelope{}, ErrNotConnected
		}
		if r.env.Type == "error" {
			return r.env, fmt.Errorf("%w: %s", ErrRejected, r.env.Error)
		}
		return r.env, nil
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	}
}

// Run keeps the hub connection up until ctx is done. Without a retry delay
// the first connection error is returned.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if c.opts.RetryDelay <= 0 {
			return err
		}
		log.Warn().Err(err).Str("module", "signal").Dur("retry", c.opts.RetryDelay).Msg("hub connection lost")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.opts.RetryDelay):
		}
	}
}

func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("user_id", string(c.opts.UserID))
	if c.opts.DisplayName != "" {
		q.Set("name", c.opts.DisplayName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) session(ctx context.Context) error {
	target, err := c.dialURL()
	if err != nil {
		return err
	}
	ws, _, err := c.opts.Dialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial hub: %w", err)
	}
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	l := &link{ws: ws, send: make(chan []byte, c.opts.Buffer)}
	stop := context.AfterFunc(sessCtx, l.close)
	defer stop()

	c.mu.Lock()
	c.link = l
	c.mu.Unlock()
	log.Info().Str("module", "signal").Str("url", c.opts.URL).Msg("connected to hub")

	var wg conc.WaitGroup
	wg.Go(func() { l.writePump(sessCtx) })
	wg.Go(func() {
		defer cancel()
		err = c.readPump(sessCtx, l)
	})
	wg.Go(func() { c.rejoin(sessCtx) })
	wg.Wait()
	l.close()

	c.mu.Lock()
	c.link = nil
	c.identity = nil
	for txn, ch := range c.pending {
		close(ch)
		delete(c.pending, txn)
	}
	c.mu.Unlock()
	return err
}

func (c *Client) rejoin(ctx context.Context) {
	for _, r := range c.Rooms() {
		if err := c.Join(ctx, r); err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Str("module", "signal").Str("room_id", string(r)).Msg("rejoin")
			}
			return
		}
	}
}

func (c *Client) readPump(ctx context.Context, l *link) error {
	for {
		_, data, err := l.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("bad json from hub")
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Client) dispatch(ctx context.Context, msg inbound) {
	if msg.Type == "whoami" {
		c.mu.Lock()
		c.identity = &domain.Identity{UserID: msg.UserID, DisplayName: msg.Username}
		c.mu.Unlock()
		log.Info().Str("module", "signal").Str("user", string(msg.UserID)).Msg("identity")
	}
	if msg.TxnID != "" && !IsCallEvent(msg.Type) {
		c.mu.Lock()
		ch, ok := c.pending[msg.TxnID]
		c.mu.Unlock()
		if ok {
			select {
			case ch <- reply{env: msg.Envelope}:
			default:
			}
		}
		return
	}

	switch {
	case msg.Type == "whoami":
	case IsCallEvent(msg.Type):
		c.deliver(ctx, msg.Envelope)
	case msg.Type == "error":
		log.Warn().Str("module", "signal").Str("error", msg.Error).Msg("hub error")
	default:
		log.Debug().Str("module", "signal").Str("type", msg.Type).Msg("hub message")
	}
}

func (c *Client) deliver(ctx context.Context, env Envelope) {
	ev, err := Decode(env)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("drop call event")
		return
	}
	if me, ok := c.Identity(); ok && env.Sender == me.UserID {
		log.Debug().Str("module", "signal").Str("type", env.Type).Msg("own echo ignored")
		return
	}
	switch e := ev.(type) {
	case domain.Invite:
		push(ctx, c.invites, e)
	case domain.Answer:
		push(ctx, c.answers, e)
	case domain.Hangup:
		push(ctx, c.hangups, e)
	case domain.Candidates:
		push(ctx, c.candidates, e)
	}
}

func push[T any](ctx context.Context, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}

// link is one websocket connection and its write queue.
type link struct {
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func (l *link) enqueue(b []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrNotConnected
	}
	select {
	case l.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

func (l *link) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	_ = l.ws.Close()
}

func (l *link) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-l.send:
			if err := l.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := l.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("write")
				l.close()
				return
			}
		}
	}
}
