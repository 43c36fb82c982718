package main

import (
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate     = 60 // simulation ticks per second
	TickDuration = time.Second / TickRate
)

const (
	MaxRoomMembers = 6
	MinRacers      = 2
)

// Broadcaster sends messages to one connected client
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// RacerInfo identifies one member entering a race, in join order
type RacerInfo struct {
	PlayerID     string
	Name         string
	AuthPlayerID int64
}

// RacerResult is one vehicle's final standing
type RacerResult struct {
	PlayerID     string
	AuthPlayerID int64
	Name         string
	Laps         int
	Eliminations int
	Won          bool
}

// RaceResult summarizes a finished race for persistence and notification
type RaceResult struct {
	RoomID     string
	RoomName   string
	WinnerID   string
	WinnerName string
	Duration   float64 // seconds
	Racers     []RacerResult
}

// Game is the authoritative session for one room: vehicles, bottles,
// power-ups, phase and winner. Phases are Lobby -> Racing -> Finished;
// a finished session is never resurrected.
type Game struct {
	mu          sync.RWMutex
	roomID      string
	lapTarget   int
	vehicles    map[string]*Vehicle
	order       []string // vehicle iteration order = join order
	inputs      map[string]PlayerInput
	projectiles []*Projectile
	powerUps    []*PowerUp
	kindCursor  int
	clients     map[string]Broadcaster
	started     bool
	ended       bool
	winnerID    string
	raceTime    uint64 // elapsed ticks
	startedAt   time.Time
	running     bool
	stop        chan struct{}
	onFinish    func(RaceResult)
}

// NewGame creates a not-started session for a room
func NewGame(roomID string, lapTarget int) *Game {
	return &Game{
		roomID:    roomID,
		lapTarget: NormalizeLapTarget(lapTarget),
		vehicles:  make(map[string]*Vehicle),
		inputs:    make(map[string]PlayerInput),
		clients:   make(map[string]Broadcaster),
		stop:      make(chan struct{}),
	}
}

// SetClient associates a broadcaster with a member
func (g *Game) SetClient(playerID string, client Broadcaster) {
	if client == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[playerID] = client
}

// OnFinish registers a hook called once when the race ends
func (g *Game) OnFinish(fn func(RaceResult)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onFinish = fn
}

// Start transitions Lobby -> Racing: one vehicle per member on the
// starting grid, colors by join order, an initial power-up batch, tick
// counter zeroed, loop started. Returns false if already started.
func (g *Game) Start(racers []RacerInfo) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started || g.ended {
		return false
	}

	for slot, r := range racers {
		v := NewVehicle(r.PlayerID, r.Name, slot)
		v.AuthPlayerID = r.AuthPlayerID
		g.vehicles[r.PlayerID] = v
		g.order = append(g.order, r.PlayerID)
		g.inputs[r.PlayerID] = PlayerInput{}
	}
	g.powerUps = SpawnPowerUps(InitialPowerUps, &g.kindCursor)
	g.started = true
	g.raceTime = 0
	g.startedAt = time.Now()
	return true
}

// Run drives the 60Hz tick loop for this session
func (g *Game) Run() {
	g.mu.Lock()
	if g.running || g.ended {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the tick loop and cancels outstanding effect timers
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
	for _, v := range g.vehicles {
		v.CancelBoost()
	}
}

// stopLocked closes the loop exactly once; callers hold g.mu
func (g *Game) stopLocked() {
	if g.running {
		g.running = false
		close(g.stop)
	}
}

// ApplyInput records the latest intent vector for a vehicle and handles
// the fire bit. Stale or invalid inputs are dropped silently: sessions
// not racing, unknown vehicles and eliminated vehicles are all no-ops.
func (g *Game) ApplyInput(playerID string, in PlayerInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started || g.ended {
		return
	}
	v, ok := g.vehicles[playerID]
	if !ok || v.Eliminated {
		return
	}
	g.inputs[playerID] = in

	if in.Fire && v.Bottles > 0 {
		g.projectiles = append(g.projectiles, NewProjectile(v))
		v.Bottles--
	}
}

// RemoveVehicle drops a departing member's vehicle mid-race
func (g *Game) RemoveVehicle(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	v, ok := g.vehicles[playerID]
	if !ok {
		delete(g.clients, playerID)
		return
	}
	v.CancelBoost()
	delete(g.vehicles, playerID)
	delete(g.inputs, playerID)
	delete(g.clients, playerID)
	for i, id := range g.order {
		if id == playerID {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// update runs one simulation tick: vehicles, then bottles and combat,
// then power-ups, then lap/win evaluation, then the snapshot broadcast.
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started || g.ended {
		return
	}
	g.raceTime++

	for _, id := range g.order {
		v := g.vehicles[id]
		if v.Eliminated {
			continue
		}
		StepVehicle(v, g.inputs[id])
		v.TickEffects()
		v.RaceTicks++
	}

	g.stepProjectiles()
	g.collectPowerUps()
	g.respawnPowerUps()

	TrackLaps(g.orderedVehicles(), g.lapTarget)
	if over, winner := CheckWinner(g.orderedVehicles(), g.lapTarget); over {
		g.finishLocked(winner)
	}

	g.broadcastState()
}

// stepProjectiles advances all live bottles and resolves hits. Each
// bottle hits at most one vehicle per tick: first match in join order
// wins and the bottle is spent.
func (g *Game) stepProjectiles() {
	for _, pr := range g.projectiles {
		pr.Step()
		if !pr.Active {
			continue
		}
		for _, id := range g.order {
			v := g.vehicles[id]
			if v.Eliminated || v.PlayerID == pr.OwnerID {
				continue
			}
			if !CheckCollision(pr.X, pr.Y, BottleRadius, v.X, v.Y, VehicleRadius) {
				continue
			}
			died := v.TakeDamage(pr.Damage)
			pr.Active = false
			knockback(v, pr)
			if died {
				if owner, ok := g.vehicles[pr.OwnerID]; ok {
					owner.Eliminations++
				}
			}
			break
		}
	}

	// Prune spent bottles
	live := g.projectiles[:0]
	for _, pr := range g.projectiles {
		if pr.Active {
			live = append(live, pr)
		}
	}
	g.projectiles = live
}

// collectPowerUps resolves power-up pickups in join order; the first
// vehicle touching an uncollected power-up gets the effect.
func (g *Game) collectPowerUps() {
	for _, pu := range g.powerUps {
		if pu.Collected {
			continue
		}
		for _, id := range g.order {
			v := g.vehicles[id]
			if v.Eliminated {
				continue
			}
			if !CheckCollision(pu.X, pu.Y, PowerUpRadius, v.X, v.Y, VehicleRadius) {
				continue
			}
			pu.Collected = true
			g.applyPowerUp(v, pu)
			break
		}
	}
}

// applyPowerUp grants the effect of a collected power-up
func (g *Game) applyPowerUp(v *Vehicle, pu *PowerUp) {
	switch pu.Type {
	case PowerUpSpeed:
		v.MaxSpeed += SpeedBoostAmount
		if v.MaxSpeed > BoostedMaxSpeed {
			v.MaxSpeed = BoostedMaxSpeed
		}
		v.CancelBoost()
		playerID := v.PlayerID
		v.boostTimer = time.AfterFunc(SpeedBoostDuration, func() {
			g.revertBoost(playerID)
		})
	case PowerUpShield:
		v.AddEffect(PowerUpShield, ShieldTicks)
	case PowerUpHealth:
		v.Heal(HealthBonus)
	case PowerUpAmmo:
		v.Bottles += BottleBonus
	}
}

// revertBoost restores the nominal speed cap after the boost delay.
// The vehicle may be long gone by the time the timer fires.
func (g *Game) revertBoost(playerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.vehicles[playerID]
	if !ok {
		return
	}
	v.MaxSpeed = NominalMaxSpeed
	v.boostTimer = nil
}

// respawnPowerUps trickles fresh power-ups onto the track every 10s
// when supply runs low. A full batch is generated but only the first
// two go live.
func (g *Game) respawnPowerUps() {
	if g.raceTime == 0 || g.raceTime%RespawnCheckTicks != 0 {
		return
	}
	uncollected := 0
	for _, pu := range g.powerUps {
		if !pu.Collected {
			uncollected++
		}
	}
	if uncollected >= RespawnFloor {
		return
	}
	batch := SpawnPowerUps(InitialPowerUps, &g.kindCursor)
	g.powerUps = append(g.powerUps, batch[:RespawnTrickle]...)
}

// finishLocked transitions Racing -> Finished exactly once
func (g *Game) finishLocked(winnerID string) {
	if g.ended {
		return
	}
	g.ended = true
	g.winnerID = winnerID
	g.stopLocked()
	for _, v := range g.vehicles {
		v.CancelBoost()
	}

	result := RaceResult{
		RoomID:   g.roomID,
		WinnerID: winnerID,
		Duration: time.Since(g.startedAt).Seconds(),
	}
	for _, id := range g.order {
		v := g.vehicles[id]
		if v.PlayerID == winnerID {
			result.WinnerName = v.Name
		}
		result.Racers = append(result.Racers, RacerResult{
			PlayerID:     v.PlayerID,
			AuthPlayerID: v.AuthPlayerID,
			Name:         v.Name,
			Laps:         v.Laps,
			Eliminations: v.Eliminations,
			Won:          v.PlayerID == winnerID,
		})
	}
	if g.onFinish != nil {
		// Dispatched off the tick path so the hook can take room locks
		// and touch the database freely
		go g.onFinish(result)
	}
}

// orderedVehicles returns vehicles in join order; callers hold g.mu
func (g *Game) orderedVehicles() []*Vehicle {
	out := make([]*Vehicle, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.vehicles[id])
	}
	return out
}

// snapshotLocked builds the full session snapshot; callers hold g.mu
func (g *Game) snapshotLocked() SessionState {
	state := SessionState{
		RoomID:      g.roomID,
		Vehicles:    make([]VehicleState, 0, len(g.order)),
		Projectiles: make([]ProjectileState, 0, len(g.projectiles)),
		PowerUps:    make([]PowerUpState, 0, len(g.powerUps)),
		Started:     g.started,
		Ended:       g.ended,
		WinnerID:    g.winnerID,
		RaceTime:    g.raceTime,
		LapTarget:   g.lapTarget,
	}
	for _, id := range g.order {
		state.Vehicles = append(state.Vehicles, g.vehicles[id].ToState())
	}
	for _, pr := range g.projectiles {
		state.Projectiles = append(state.Projectiles, pr.ToState())
	}
	for _, pu := range g.powerUps {
		if !pu.Collected {
			state.PowerUps = append(state.PowerUps, pu.ToState())
		}
	}
	return state
}

// Snapshot returns the current full session snapshot
func (g *Game) Snapshot() SessionState {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

// broadcastState sends the msgpack-encoded snapshot to every member
func (g *Game) broadcastState() {
	data, err := msgpack.Marshal(g.snapshotLocked())
	if err != nil {
		log.Printf("snapshot marshal error: %v", err)
		return
	}
	for _, client := range g.clients {
		client.SendBinary(data)
	}
}

// broadcastMsg sends a JSON message to all members of the session
func (g *Game) broadcastMsg(msg Envelope) {
	for _, client := range g.clients {
		client.SendJSON(msg)
	}
}

// Started reports whether the race has begun
func (g *Game) Started() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.started
}

// Ended reports whether the race has finished
func (g *Game) Ended() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ended
}
