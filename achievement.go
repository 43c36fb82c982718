package main

// AchievementDef describes one unlockable racing achievement
type AchievementDef struct {
	ID          string
	Name        string
	Description string
}

var Achievements = []AchievementDef{
	{"first_win", "Checkered Flag", "Win your first race"},
	{"podium_regular", "Podium Regular", "Win 10 races"},
	{"race_legend", "Race Legend", "Win 50 races"},
	{"first_blood", "First Bottle", "Eliminate another racer"},
	{"demolition", "Demolition Derby", "Eliminate 3 racers in a single race"},
	{"road_warrior", "Road Warrior", "Reach 100 career eliminations"},
	{"century_laps", "Century", "Complete 100 career laps"},
	{"marathon", "Marathon", "Race for 1 hour total"},
}

// CheckAchievements unlocks any achievements a player newly qualifies
// for after a race. Returns the newly unlocked definitions.
func CheckAchievements(db *DB, playerID int64, raceLaps, raceEliminations int, won bool) []AchievementDef {
	if db == nil {
		return nil
	}

	stats, err := db.GetStats(playerID)
	if err != nil || stats == nil {
		return nil
	}

	existing, err := db.GetAchievements(playerID)
	if err != nil {
		return nil
	}
	has := make(map[string]bool, len(existing))
	for _, a := range existing {
		has[a] = true
	}

	var unlocked []AchievementDef

	check := func(id string) bool {
		if has[id] {
			return false
		}
		switch id {
		case "first_win":
			return stats.Wins >= 1
		case "podium_regular":
			return stats.Wins >= 10
		case "race_legend":
			return stats.Wins >= 50
		case "first_blood":
			return stats.Eliminations >= 1
		case "demolition":
			return raceEliminations >= 3
		case "road_warrior":
			return stats.Eliminations >= 100
		case "century_laps":
			return stats.Laps >= 100
		case "marathon":
			return stats.Playtime >= 3600
		}
		return false
	}

	for _, def := range Achievements {
		if check(def.ID) {
			if newlyUnlocked, err := db.UnlockAchievement(playerID, def.ID); err == nil && newlyUnlocked {
				unlocked = append(unlocked, def)
			}
		}
	}

	return unlocked
}
