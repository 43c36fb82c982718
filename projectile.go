package main

import "math"

const (
	BottleSpeed      = 12.0
	BottleRadius     = 5.0
	BottleDamage     = 20
	BottleOffset     = 40.0 // spawn distance ahead of the throwing vehicle
	KnockbackImpulse = 3.0
)

// Projectile is a thrown bottle
type Projectile struct {
	ID      string
	OwnerID string
	X, Y    float64
	VX, VY  float64
	Damage  int
	Active  bool
}

// NewProjectile spawns a bottle ahead of the throwing vehicle, inheriting
// the vehicle's velocity on top of the fixed launch speed along heading.
func NewProjectile(owner *Vehicle) *Projectile {
	cos := math.Cos(owner.Heading)
	sin := math.Sin(owner.Heading)
	return &Projectile{
		ID:      GenerateID(3),
		OwnerID: owner.PlayerID,
		X:       owner.X + cos*BottleOffset,
		Y:       owner.Y + sin*BottleOffset,
		VX:      owner.VX + cos*BottleSpeed,
		VY:      owner.VY + sin*BottleSpeed,
		Damage:  BottleDamage,
		Active:  true,
	}
}

// Step moves the bottle one tick and deactivates it once it leaves the track
func (p *Projectile) Step() {
	if !p.Active {
		return
	}
	p.X += p.VX
	p.Y += p.VY
	if p.X < 0 || p.X > TrackWidth || p.Y < 0 || p.Y > TrackHeight {
		p.Active = false
	}
}

// ToState converts to protocol state
func (p *Projectile) ToState() ProjectileState {
	return ProjectileState{
		ID:    p.ID,
		X:     p.X,
		Y:     p.Y,
		Owner: p.OwnerID,
	}
}
