package main

import (
	"math"
	"time"
)

const (
	VehicleRadius    = 20.0
	VehicleMaxHealth = 100
	StartBottles     = 5
	NominalMaxSpeed  = 8.0
	BoostedMaxSpeed  = 12.0
	StartGridX       = 100.0
	StartGridY       = 100.0
	StartGridGap     = 40.0
)

// vehicleColors is indexed by join order (room capacity is 6)
var vehicleColors = [6]string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6", "#e67e22",
}

// Effect is a timed power-up effect attached to a vehicle
type Effect struct {
	Type      string
	TicksLeft int
}

// PlayerInput is the latest intent vector for one vehicle
type PlayerInput struct {
	Forward   bool
	Brake     bool
	TurnLeft  bool
	TurnRight bool
	Fire      bool
}

// Vehicle is the per-player simulated car
type Vehicle struct {
	PlayerID     string
	Name         string
	X, Y         float64
	VX, VY       float64
	Heading      float64 // radians
	Health       int
	MaxHealth    int
	MaxSpeed     float64 // power-ups may raise this temporarily
	Bottles      int
	Laps         int
	RaceTicks    uint64
	Eliminated   bool
	Color        string
	Effects      []Effect
	Eliminations int

	inLapZone    bool // one-shot gate for lap crossing
	boostTimer   *time.Timer
	AuthPlayerID int64
}

// NewVehicle places a vehicle on the starting grid slot for its join order
func NewVehicle(playerID, name string, slot int) *Vehicle {
	return &Vehicle{
		PlayerID:  playerID,
		Name:      name,
		X:         StartGridX,
		Y:         StartGridY + StartGridGap*float64(slot),
		Health:    VehicleMaxHealth,
		MaxHealth: VehicleMaxHealth,
		MaxSpeed:  NominalMaxSpeed,
		Bottles:   StartBottles,
		Color:     vehicleColors[slot%len(vehicleColors)],
	}
}

// Speed returns the velocity magnitude
func (v *Vehicle) Speed() float64 {
	return math.Sqrt(v.VX*v.VX + v.VY*v.VY)
}

// TakeDamage reduces health and returns true if the vehicle was eliminated.
// Elimination is monotonic; a dead vehicle ignores further damage.
func (v *Vehicle) TakeDamage(dmg int) bool {
	if v.Eliminated {
		return false
	}
	v.Health -= dmg
	if v.Health <= 0 {
		v.Health = 0
		v.Eliminated = true
		return true
	}
	return false
}

// Heal raises health, capped at MaxHealth
func (v *Vehicle) Heal(amount int) {
	v.Health += amount
	if v.Health > v.MaxHealth {
		v.Health = v.MaxHealth
	}
}

// AddEffect appends a timed effect record
func (v *Vehicle) AddEffect(effectType string, ticks int) {
	v.Effects = append(v.Effects, Effect{Type: effectType, TicksLeft: ticks})
}

// TickEffects decrements effect durations and prunes expired ones
func (v *Vehicle) TickEffects() {
	if len(v.Effects) == 0 {
		return
	}
	kept := v.Effects[:0]
	for i := range v.Effects {
		v.Effects[i].TicksLeft--
		if v.Effects[i].TicksLeft > 0 {
			kept = append(kept, v.Effects[i])
		}
	}
	v.Effects = kept
}

// HasShield reports whether an unexpired shield effect is active.
// Shields are cosmetic: they are broadcast for rendering but do not
// suppress bottle damage.
func (v *Vehicle) HasShield() bool {
	for _, e := range v.Effects {
		if e.Type == PowerUpShield {
			return true
		}
	}
	return false
}

// CancelBoost stops a pending speed-boost reversion timer, if any
func (v *Vehicle) CancelBoost() {
	if v.boostTimer != nil {
		v.boostTimer.Stop()
		v.boostTimer = nil
	}
}

// ToState converts to protocol state
func (v *Vehicle) ToState() VehicleState {
	return VehicleState{
		ID:         v.PlayerID,
		Name:       v.Name,
		X:          v.X,
		Y:          v.Y,
		VX:         v.VX,
		VY:         v.VY,
		Heading:    v.Heading,
		Health:     v.Health,
		MaxHealth:  v.MaxHealth,
		MaxSpeed:   v.MaxSpeed,
		Bottles:    v.Bottles,
		Laps:       v.Laps,
		Eliminated: v.Eliminated,
		Shield:     v.HasShield(),
		Color:      v.Color,
	}
}
