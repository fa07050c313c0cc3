package world

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"gridstead/internal/persistence/snapshot"
	"gridstead/internal/protocol"
	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
	"gridstead/internal/sim/terrain"
	"gridstead/internal/sim/tuning"
)

type Config struct {
	ID                 string
	Seed               int64
	Width              int
	Height             int
	TickRateHz         int
	SnapshotEveryTicks int
	Storage            tuning.StorageDefaults
}

type JoinRequest struct {
	Name        string
	ResumeToken string
	Out         chan []byte
	Resp        chan JoinResponse
}

type JoinResponse struct {
	Welcome  protocol.WelcomeMsg
	Catalogs []protocol.CatalogMsg
}

type CommandEnvelope struct {
	ClientID string
	Cmd      protocol.Command
}

type RecordedCommand struct {
	ClientID string           `json:"client_id"`
	Cmd      protocol.Command `json:"cmd"`
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Joins    []string          `json:"joins,omitempty"`
	Leaves   []string          `json:"leaves,omitempty"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Digest   string            `json:"digest"`
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type clientState struct {
	Out         chan []byte
	ResumeToken string
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	terrain  *terrain.Map

	registry  *Registry
	scheduler *Scheduler

	tick atomic.Uint64

	clients map[string]*clientState

	// Events emitted during the current tick, cleared after broadcast.
	events []protocol.Event

	inbox chan CommandEnvelope
	join  chan JoinRequest
	leave chan string
	stop  chan struct{}

	nextClientNum atomic.Uint64

	// Optional tick logger (may be nil). Implemented in internal/persistence.
	tickLogger TickLogger

	// Optional snapshot sink (may be nil). Snapshot writing is off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	metrics atomic.Value // Metrics
}

func New(cfg Config, cats *catalogs.Catalogs) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRateHz)
	}
	tm, err := terrain.New(cfg.Seed, cfg.Width, cfg.Height, &cats.Terrain)
	if err != nil {
		return nil, err
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		terrain:  tm,
		clients:  map[string]*clientState{},
		inbox:    make(chan CommandEnvelope, 1024),
		join:     make(chan JoinRequest, 64),
		leave:    make(chan string, 64),
		stop:     make(chan struct{}),
	}
	w.registry = NewRegistry(tm, cfg.Storage, w)
	w.scheduler = NewScheduler(w.registry, w)
	w.metrics.Store(Metrics{})
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) Inbox() chan<- CommandEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest      { return w.join }
func (w *World) Leave() chan<- string          { return w.leave }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }
func (w *World) ID() string          { return w.cfg.ID }
func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }

// Registry exposes the structure registry for tests and snapshot tooling.
// Callers outside the loop goroutine must not touch it while Run is active.
func (w *World) Registry() *Registry { return w.registry }

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingCmds []CommandEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case env := <-w.inbox:
			pendingCmds = append(pendingCmds, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingCmds)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingCmds = pendingCmds[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

func (w *World) step(joins []JoinRequest, leaves []string, cmds []CommandEnvelope) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	// Apply leaves and joins deterministically at the tick boundary.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := w.clients[id]; ok {
			delete(w.clients, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]string, 0, len(joins))
	for _, req := range joins {
		resp := w.handleJoin(req)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, resp.Welcome.ClientID)
	}

	// Apply commands in server receive order (the inbox order).
	recorded := make([]RecordedCommand, 0, len(cmds))
	for _, env := range cmds {
		if _, ok := w.clients[env.ClientID]; !ok {
			continue
		}
		recorded = append(recorded, RecordedCommand{ClientID: env.ClientID, Cmd: env.Cmd})
		w.applyCommand(env.ClientID, env.Cmd, nowTick)
	}

	// Simulation: one walk over all structures.
	dt := 1.0 / float64(w.cfg.TickRateHz)
	w.scheduler.Tick(dt, nowTick)

	digest := w.stateDigest(nowTick)
	w.broadcastState(nowTick, digest)

	if w.tickLogger != nil {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:     nowTick,
			Joins:    recordedJoins,
			Leaves:   recordedLeaves,
			Commands: recorded,
			Digest:   digest,
		})
	}

	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		every := uint64(w.cfg.SnapshotEveryTicks)
		if nowTick%every == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	w.events = w.events[:0]
	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.storeMetrics(nextTick, stepMS)
}

// StepOnce advances the world by a single tick using the same ordering
// semantics as the server loop. Intended for deterministic replays and tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, cmds []CommandEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, cmds)
	return tick, w.stateDigest(tick)
}

func (w *World) handleJoin(req JoinRequest) JoinResponse {
	idNum := w.nextClientNum.Add(1)
	clientID := fmt.Sprintf("C%d", idNum)
	token := fmt.Sprintf("resume_%s_%d", w.cfg.ID, time.Now().UnixNano())

	if req.ResumeToken != "" {
		// Resume: rebind an existing session id if the token matches.
		if id, ok := w.findByToken(req.ResumeToken); ok {
			clientID = id
		}
	}

	if req.Out != nil {
		w.clients[clientID] = &clientState{Out: req.Out, ResumeToken: token}
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		ClientID:        clientID,
		ResumeToken:     token,
		WorldParams: protocol.WorldParams{
			WorldID:    w.cfg.ID,
			TickRateHz: w.cfg.TickRateHz,
			Width:      w.cfg.Width,
			Height:     w.cfg.Height,
			Seed:       w.cfg.Seed,
		},
		Catalogs: protocol.CatalogDigests{
			ResourcePalette: protocol.DigestRef{
				Digest: w.catalogs.Resources.PaletteDigest,
				Count:  len(w.catalogs.Resources.Palette),
			},
			TerrainPalette: protocol.DigestRef{
				Digest: w.catalogs.Terrain.PaletteDigest,
				Count:  len(w.catalogs.Terrain.Palette),
			},
			StructuresDigest: w.catalogs.Structures.Digest,
		},
	}

	catalogMsgs := []protocol.CatalogMsg{
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "resource_palette",
			Digest:          w.catalogs.Resources.PaletteDigest,
			Part:            1,
			TotalParts:      1,
			Data:            w.catalogs.Resources.Palette,
		},
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "terrain_palette",
			Digest:          w.catalogs.Terrain.PaletteDigest,
			Part:            1,
			TotalParts:      1,
			Data:            w.catalogs.Terrain.Palette,
		},
		{
			Type:            protocol.TypeCatalog,
			ProtocolVersion: protocol.Version,
			Name:            "structures",
			Digest:          w.catalogs.Structures.Digest,
			Part:            1,
			TotalParts:      1,
			Data:            w.catalogs.Structures.Order,
		},
	}

	return JoinResponse{Welcome: welcome, Catalogs: catalogMsgs}
}

func (w *World) findByToken(token string) (string, bool) {
	for id, cl := range w.clients {
		if cl.ResumeToken == token {
			return id, true
		}
	}
	return "", false
}

func (w *World) applyCommand(clientID string, cmd protocol.Command, nowTick uint64) {
	switch cmd.Kind {
	case protocol.CmdPlace:
		def := w.catalogs.Structures.Lookup(cmd.DefID)
		if def == nil {
			w.pushResult(nowTick, cmd.ID, false, protocol.ErrUnknownDef, "unknown structure definition")
			return
		}
		anchor := grid.Cell{X: cmd.Anchor[0], Y: cmd.Anchor[1]}
		rot := grid.NormalizeRotation(cmd.Rotation)
		s, res := w.registry.Place(def, anchor, rot, nowTick)
		if !res.OK {
			w.pushResult(nowTick, cmd.ID, false, rejectCode(res.Reason), string(res.Reason))
			return
		}
		w.events = append(w.events, protocol.Event{
			"t": nowTick, "type": "CMD_RESULT", "ref": cmd.ID, "ok": true, "structure_id": s.ID,
		})

	case protocol.CmdDemolish:
		if cmd.StructureID == "" {
			w.pushResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "missing structure_id")
			return
		}
		if !w.registry.Demolish(cmd.StructureID, nowTick) {
			w.pushResult(nowTick, cmd.ID, false, protocol.ErrInvalidTarget, "structure not found")
			return
		}
		w.pushResult(nowTick, cmd.ID, true, "", "demolished")

	default:
		w.pushResult(nowTick, cmd.ID, false, protocol.ErrBadRequest, "unknown command kind")
	}
}

func (w *World) pushResult(tick uint64, ref string, ok bool, code, msg string) {
	ev := protocol.Event{"t": tick, "type": "CMD_RESULT", "ref": ref, "ok": ok}
	if code != "" {
		ev["code"] = code
	}
	if msg != "" {
		ev["message"] = msg
	}
	w.events = append(w.events, ev)
}

func rejectCode(r RejectReason) string {
	switch r {
	case RejectRotationNotAllowed:
		return protocol.ErrRotation
	case RejectOutOfBounds:
		return protocol.ErrBounds
	case RejectCollision:
		return protocol.ErrCollision
	case RejectForbiddenTerrain:
		return protocol.ErrTerrainForbidden
	case RejectTerrainNotAllowed:
		return protocol.ErrTerrainNotAllowed
	default:
		return protocol.ErrInternal
	}
}

func (w *World) broadcastState(nowTick uint64, digest string) {
	if len(w.clients) == 0 {
		return
	}
	msg := w.buildState(nowTick, digest)
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	for _, cl := range w.clients {
		sendLatest(cl.Out, b)
	}
}

func (w *World) buildState(nowTick uint64, digest string) protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            nowTick,
		Digest:          digest,
		Structures:      make([]protocol.StructureState, 0, w.registry.Len()),
		Events:          w.events,
	}
	for _, s := range w.registry.All() {
		msg.Structures = append(msg.Structures, protocol.StructureState{
			ID:         s.ID,
			DefID:      s.Def.ID,
			Anchor:     [2]int{s.Anchor.X, s.Anchor.Y},
			Rotation:   s.Rotation.Degrees(),
			State:      s.State.String(),
			Progress:   s.Progress,
			Input:      w.resourceCounts(s.Input.Entries()),
			Output:     w.resourceCounts(s.Output.Entries()),
			CycleCount: s.CycleCount,
		})
	}
	return msg
}

// sendLatest delivers b without blocking the loop: if the client's channel is
// full, the oldest queued message is dropped in its favor.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
