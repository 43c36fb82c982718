package main

import "math"

// Fixed simulation parameters. These are the track's physical laws, not
// configuration — every room runs the same numbers.
const (
	TrackWidth   = 800.0
	TrackHeight  = 600.0
	TrackMargin  = 20.0 // vehicles bounce off this inset
	Acceleration = 0.5  // impulse per tick while accelerating
	BrakeFactor  = 0.8  // velocity multiplier while braking
	Friction     = 0.95 // ambient velocity multiplier, every tick
	TurnRate     = 0.08 // radians per tick at nominal max speed
	MinTurnSpeed = 0.5  // below this, steering has no effect
)

// StepVehicle advances one non-eliminated vehicle by one tick given its
// latest intent vector: thrust, brake, steer, friction, speed clamp,
// integrate, then wall bounce.
func StepVehicle(v *Vehicle, in PlayerInput) {
	if v.Eliminated {
		return
	}

	if in.Forward {
		v.VX += math.Cos(v.Heading) * Acceleration
		v.VY += math.Sin(v.Heading) * Acceleration
	}
	if in.Brake {
		v.VX *= BrakeFactor
		v.VY *= BrakeFactor
	}

	// Steering is speed-proportional and impossible while nearly stationary
	speed := v.Speed()
	if speed > MinTurnSpeed {
		turn := TurnRate * (speed / NominalMaxSpeed)
		if in.TurnLeft {
			v.Heading -= turn
		}
		if in.TurnRight {
			v.Heading += turn
		}
	}

	v.VX *= Friction
	v.VY *= Friction

	// Clamp speed to the current cap (power-ups may have raised it)
	speed = v.Speed()
	if speed > v.MaxSpeed {
		scale := v.MaxSpeed / speed
		v.VX *= scale
		v.VY *= scale
	}

	v.X += v.VX
	v.Y += v.VY

	bounceOffWalls(v)
}

// bounceOffWalls clamps the vehicle inside the track margin and reflects
// the offending velocity component inward at half magnitude, per axis.
func bounceOffWalls(v *Vehicle) {
	if v.X < TrackMargin {
		v.X = TrackMargin
		v.VX = math.Abs(v.VX) / 2
	} else if v.X > TrackWidth-TrackMargin {
		v.X = TrackWidth - TrackMargin
		v.VX = -math.Abs(v.VX) / 2
	}
	if v.Y < TrackMargin {
		v.Y = TrackMargin
		v.VY = math.Abs(v.VY) / 2
	} else if v.Y > TrackHeight-TrackMargin {
		v.Y = TrackHeight - TrackMargin
		v.VY = -math.Abs(v.VY) / 2
	}
}
