package main

const (
	DefaultLapTarget = 3
	// Start-line zone: a vehicle crossing it while moving rightward
	// completes a lap.
	LapZoneMaxX = 50.0
	LapZoneMaxY = 100.0
)

// NormalizeLapTarget maps a lobby lap choice to a valid target.
// The lobby offers 1/3/5/10; anything else falls back to the default.
func NormalizeLapTarget(n int) int {
	switch n {
	case 1, 3, 5, 10:
		return n
	}
	return DefaultLapTarget
}

// TrackLaps increments lap counters for non-eliminated vehicles entering
// the start zone while moving rightward. The zone is edge-triggered: a
// vehicle idling inside it counts one crossing, not one per tick.
func TrackLaps(vehicles []*Vehicle, lapTarget int) {
	for _, v := range vehicles {
		if v.Eliminated {
			continue
		}
		inZone := v.X < LapZoneMaxX && v.Y < LapZoneMaxY
		if inZone && !v.inLapZone && v.VX > 0 && v.Laps < lapTarget {
			v.Laps++
		}
		v.inLapZone = inZone
	}
}

// CheckWinner evaluates the win conditions in order, first match wins:
// a vehicle reaching the lap target, or at most one vehicle left standing.
// Returns (raceOver, winnerID); winnerID is empty on mutual elimination.
func CheckWinner(vehicles []*Vehicle, lapTarget int) (bool, string) {
	for _, v := range vehicles {
		if v.Laps >= lapTarget {
			return true, v.PlayerID
		}
	}

	var last *Vehicle
	standing := 0
	for _, v := range vehicles {
		if !v.Eliminated {
			last = v
			standing++
		}
	}
	if standing > 1 {
		return false, ""
	}
	if standing == 1 {
		return true, last.PlayerID
	}
	return true, ""
}
