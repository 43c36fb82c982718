package main

import "math"

// CheckCollision checks whether two circles overlap. Exact touching does
// not count: the distance must be strictly under the radius sum.
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2
	return dist2 < radSum*radSum
}

// knockback shoves a vehicle directly away from the bottle that hit it
func knockback(v *Vehicle, pr *Projectile) {
	ang := math.Atan2(v.Y-pr.Y, v.X-pr.X)
	v.VX += math.Cos(ang) * KnockbackImpulse
	v.VY += math.Sin(ang) * KnockbackImpulse
}
