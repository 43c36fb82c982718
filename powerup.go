package main

import "time"

const (
	PowerUpRadius      = 15.0
	PowerUpMargin      = 50.0 // spawn inset from track edges
	InitialPowerUps    = 8
	RespawnCheckTicks  = 600 // every 10s at 60Hz
	RespawnFloor       = 4   // respawn only when fewer uncollected remain
	RespawnTrickle     = 2   // how many of a fresh batch actually go live
	SpeedBoostAmount   = 2.0
	SpeedBoostDuration = 5 * time.Second // wall-clock, not tick-based
	ShieldTicks        = 8 * TickRate
	HealthBonus        = 30
	BottleBonus        = 3
)

// Power-up kinds, cycled round-robin at spawn time
const (
	PowerUpSpeed  = "speed"
	PowerUpShield = "shield"
	PowerUpHealth = "health"
	PowerUpAmmo   = "extraAmmo"
)

var powerUpKinds = [4]string{PowerUpSpeed, PowerUpShield, PowerUpHealth, PowerUpAmmo}

// PowerUp is a collectible track entity. Once collected it is never reused.
type PowerUp struct {
	ID        string
	Type      string
	X, Y      float64
	Collected bool
}

// SpawnPowerUps generates a batch at random positions inside the track
// inset, cycling kinds round-robin. kindCursor persists across batches so
// the rotation continues where the previous batch stopped.
func SpawnPowerUps(n int, kindCursor *int) []*PowerUp {
	batch := make([]*PowerUp, 0, n)
	for i := 0; i < n; i++ {
		kind := powerUpKinds[*kindCursor%len(powerUpKinds)]
		*kindCursor++
		batch = append(batch, &PowerUp{
			ID:   GenerateID(4),
			Type: kind,
			X:    PowerUpMargin + randFloat()*(TrackWidth-2*PowerUpMargin),
			Y:    PowerUpMargin + randFloat()*(TrackHeight-2*PowerUpMargin),
		})
	}
	return batch
}

// ToState converts to protocol state
func (p *PowerUp) ToState() PowerUpState {
	return PowerUpState{
		ID:   p.ID,
		Type: p.Type,
		X:    p.X,
		Y:    p.Y,
	}
}
