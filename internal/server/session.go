package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/export"
	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/logger"
	"github.com/lawnchairsociety/levelforge/internal/storage"
	"github.com/lawnchairsociety/levelforge/internal/visibility"
)

var (
	errNoLayout      = errors.New("no level generated yet")
	errNoStore       = errors.New("saving is disabled")
	errUnknownType   = errors.New("unknown request type")
	errTooManyRooms  = fmt.Errorf("room_amount above %d", maxRequestRooms)
	errClientLockout = errors.New("too many rejected requests")
	errThrottled     = errors.New("generating too often")
)

// session is one client's conversation: generate a level, then walk it.
type session struct {
	srv     *Server
	client  Client
	ip      string
	layout  *level.Layout
	tracker *visibility.Tracker

	throttle *Throttle
}

func newSession(srv *Server, client Client, ip string) *session {
	return &session{
		srv:      srv,
		client:   client,
		ip:       ip,
		throttle: NewThrottle(srv.cfg.Throttle),
	}
}

// run reads requests until the client disconnects, ctx ends or the client
// gets locked out.
func (ss *session) run(ctx context.Context) {
	for ctx.Err() == nil {
		req, err := ss.client.ReadRequest()
		if err != nil {
			if !errors.Is(err, ErrBadRequest) {
				return
			}
			if !ss.reject(err) {
				return
			}
			continue
		}

		if err := ss.handle(ctx, req); err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, errSend) {
				logger.Debug("Client write failed", "client_ip", ss.ip, "error", err)
				return
			}
			if !ss.reject(err) {
				return
			}
			continue
		}
		ss.srv.rejectionLimiter.RecordAccepted(ss.ip)
	}
}

// reject reports err to the client and counts it against the client's IP.
// It returns false once the client is locked out.
func (ss *session) reject(err error) bool {
	logger.Debug("Request rejected", "client_ip", ss.ip, "error", err)

	locked, d := ss.srv.rejectionLimiter.RecordRejection(ss.ip)
	if locked {
		logger.Warning("Client locked out", "client_ip", ss.ip, "duration", d)
		ss.client.Send(errorEvent(fmt.Errorf("%w, locked out for %s", errClientLockout, d.Round(time.Second))))
		return false
	}
	return ss.client.Send(errorEvent(err)) == nil
}

// errSend marks failures to write to the client, which end the session.
var errSend = errors.New("send failed")

func (ss *session) send(ev *Event) error {
	if err := ss.client.Send(ev); err != nil {
		return fmt.Errorf("%w: %v", errSend, err)
	}
	return nil
}

func (ss *session) handle(ctx context.Context, req *Request) error {
	switch req.Type {
	case RequestGenerate:
		return ss.generate(ctx, req)
	case RequestEnter, RequestExit, RequestMove, RequestSnapshot:
		return ss.walk(req)
	case RequestMap:
		if ss.layout == nil {
			return errNoLayout
		}
		return ss.send(&Event{Type: EventMap, Text: export.MapString(ss.layout, export.MapOptions{Details: req.Details})})
	case RequestYAML:
		if ss.layout == nil {
			return errNoLayout
		}
		var buf bytes.Buffer
		if err := export.WriteLayout(&buf, ss.layout); err != nil {
			return err
		}
		return ss.send(&Event{Type: EventYAML, Text: buf.String()})
	case RequestSave:
		return ss.save()
	default:
		return fmt.Errorf("%w %q", errUnknownType, req.Type)
	}
}

// params applies the request's overrides to the configured parameters
func (ss *session) params(req *Request) (level.Params, error) {
	p := ss.srv.cfg.Generation.Params()
	if req.Seed != nil {
		p.Seed = *req.Seed
	}
	if req.RoomAmount != nil {
		p.RoomAmount = *req.RoomAmount
	}
	if req.LevelShape != nil {
		p.LevelShape = *req.LevelShape
	}
	if req.Interconnectivity != nil {
		p.Interconnectivity = *req.Interconnectivity
	}
	if p.RoomAmount > maxRequestRooms {
		return p, errTooManyRooms
	}
	if p.Spawn.RoomID >= p.RoomAmount {
		p.Spawn.RoomID = 0
	}
	return p, p.Validate()
}

// generate ticks a fresh generator, streaming every event. Ticks are paced
// by the configured interval.
func (ss *session) generate(ctx context.Context, req *Request) error {
	params, err := ss.params(req)
	if err != nil {
		return err
	}
	if ok, wait := ss.throttle.Allow(); !ok {
		return fmt.Errorf("%w, try again in %s", errThrottled, wait.Round(time.Second))
	}
	gen, err := level.New(params, ss.srv.catalog)
	if err != nil {
		return err
	}

	obs := &streamObserver{send: ss.send}
	gen.SetObserver(obs)

	var tick <-chan time.Time
	if ms := ss.srv.cfg.WebSocket.TickIntervalMs; ms > 0 {
		ticker := time.NewTicker(time.Duration(ms) * time.Millisecond)
		defer ticker.Stop()
		tick = ticker.C
	}

	ss.layout, ss.tracker = nil, nil
	for !gen.State().Done() {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		gen.Tick()
		if obs.err != nil {
			return obs.err
		}
		if params.MaxTicks > 0 && gen.Ticks() >= params.MaxTicks && !gen.State().Done() {
			return ss.send(&Event{Type: EventFailed, Error: fmt.Sprintf("%v after %d ticks", level.ErrTickBudget, gen.Ticks())})
		}
	}

	if gen.State() == level.Failed {
		logger.Warning("Streamed generation failed", "client_ip", ss.ip, "error", gen.Err())
		return ss.send(&Event{Type: EventFailed, Error: gen.Err().Error()})
	}

	ss.layout = gen.Layout()
	ss.tracker = visibility.NewTracker(ss.layout, ss.srv.cfg.Visibility.Options())
	return ss.sendVisibility()
}

// walk applies a player movement request to the visibility tracker
func (ss *session) walk(req *Request) error {
	if ss.tracker == nil {
		return errNoLayout
	}

	var err error
	switch req.Type {
	case RequestEnter:
		err = ss.tracker.Enter(req.Room)
	case RequestExit:
		err = ss.tracker.Exit(req.Room)
	case RequestMove:
		ss.tracker.MoveTo(geom.Vec2{X: req.X, Z: req.Z})
	}
	if err != nil {
		return err
	}
	return ss.sendVisibility()
}

func (ss *session) sendVisibility() error {
	snap := ss.tracker.Snapshot()
	return ss.send(&Event{Type: EventVisibility, Visibility: &snap})
}

func (ss *session) save() error {
	if ss.layout == nil {
		return errNoLayout
	}
	if ss.srv.store == nil {
		return errNoStore
	}

	id, err := ss.srv.store.SaveLayout(ss.layout)
	if err != nil && !errors.Is(err, storage.ErrLayoutExists) {
		logger.Error("Failed to save layout", "error", err)
		return err
	}
	return ss.send(&Event{Type: EventSaved, LayoutID: id, Summary: summarize(ss.layout)})
}

// streamObserver turns generator events into client events. The first send
// error is kept and stops the stream.
type streamObserver struct {
	send func(*Event) error
	err  error
}

func (o *streamObserver) emit(ev *Event) {
	if o.err == nil {
		o.err = o.send(ev)
	}
}

func (o *streamObserver) StateChanged(from, to level.State) {
	o.emit(&Event{Type: EventState, From: from.String(), To: to.String()})
}

func (o *streamObserver) RoomPlaced(ev level.PlacementEvent) {
	o.emit(&Event{Type: EventRoom, Room: &RoomMessage{
		ID:       ev.RoomID,
		Parent:   ev.ParentID,
		Type:     ev.Type.String(),
		Template: ev.Template,
		X:        ev.Position.X,
		Z:        ev.Position.Z,
		Yaw:      ev.Yaw,
		Fallback: ev.Fallback,
	}})
}

func (o *streamObserver) GateChanged(ev level.GateEvent) {
	o.emit(&Event{Type: EventGate, Gate: &GateMessage{
		Room:      ev.RoomID,
		Index:     ev.GateIndex,
		X:         ev.Position.X,
		Z:         ev.Position.Z,
		Direction: ev.Direction.String(),
		State:     ev.State.String(),
		Peer:      ev.PeerRoomID,
		Extra:     ev.Extra,
	}})
}

func (o *streamObserver) GenerationDone(l *level.Layout) {
	o.emit(&Event{Type: EventDone, Summary: summarize(l)})
}
