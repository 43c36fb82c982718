package main

import (
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster records outgoing messages for assertions
type mockBroadcaster struct {
	mu     sync.Mutex
	json   []interface{}
	binary [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.json = append(m.json, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockBroadcaster) binaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.binary)
}

func (m *mockBroadcaster) lastBinary() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.binary) == 0 {
		return nil
	}
	return m.binary[len(m.binary)-1]
}

func twoPlayerGame(t *testing.T) *Game {
	t.Helper()
	g := NewGame("room1", DefaultLapTarget)
	ok := g.Start([]RacerInfo{
		{PlayerID: "a", Name: "Alice"},
		{PlayerID: "b", Name: "Bob"},
	})
	if !ok {
		t.Fatal("Start returned false")
	}
	return g
}

func TestGameStart(t *testing.T) {
	g := twoPlayerGame(t)

	state := g.Snapshot()
	if !state.Started || state.Ended {
		t.Fatalf("expected started race, got started=%v ended=%v", state.Started, state.Ended)
	}
	if state.RaceTime != 0 {
		t.Errorf("raceTime = %d, want 0", state.RaceTime)
	}
	if len(state.Vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(state.Vehicles))
	}
	if len(state.PowerUps) != InitialPowerUps {
		t.Errorf("got %d power-ups, want %d", len(state.PowerUps), InitialPowerUps)
	}

	a, b := state.Vehicles[0], state.Vehicles[1]
	if a.X != StartGridX || a.Y != StartGridY {
		t.Errorf("first vehicle at (%v,%v), want (%v,%v)", a.X, a.Y, StartGridX, StartGridY)
	}
	if b.X != StartGridX || b.Y != StartGridY+StartGridGap {
		t.Errorf("second vehicle at (%v,%v), want (%v,%v)", b.X, b.Y, StartGridX, StartGridY+StartGridGap)
	}
	for _, v := range state.Vehicles {
		if v.Health != VehicleMaxHealth {
			t.Errorf("%s health = %d, want %d", v.ID, v.Health, VehicleMaxHealth)
		}
		if v.Bottles != StartBottles {
			t.Errorf("%s bottles = %d, want %d", v.ID, v.Bottles, StartBottles)
		}
	}
}

func TestGameStartOnlyOnce(t *testing.T) {
	g := twoPlayerGame(t)
	if g.Start([]RacerInfo{{PlayerID: "c", Name: "Carol"}}) {
		t.Fatal("second Start should return false")
	}
	if len(g.Snapshot().Vehicles) != 2 {
		t.Error("second Start must not add vehicles")
	}
}

func TestApplyInputBeforeStart(t *testing.T) {
	g := NewGame("room1", DefaultLapTarget)
	g.ApplyInput("a", PlayerInput{Forward: true, Fire: true})
	if len(g.projectiles) != 0 {
		t.Error("input before start must be a no-op")
	}
}

func TestApplyInputUnknownVehicle(t *testing.T) {
	g := twoPlayerGame(t)
	g.ApplyInput("ghost", PlayerInput{Fire: true})
	if len(g.projectiles) != 0 {
		t.Error("input from unknown vehicle must be a no-op")
	}
}

func TestApplyInputEliminated(t *testing.T) {
	g := twoPlayerGame(t)
	g.vehicles["a"].Eliminated = true
	g.ApplyInput("a", PlayerInput{Fire: true})
	if len(g.projectiles) != 0 {
		t.Error("eliminated vehicle must not fire")
	}
	if g.vehicles["a"].Bottles != StartBottles {
		t.Error("eliminated vehicle must not spend bottles")
	}
}

func TestFireSpendsBottle(t *testing.T) {
	g := twoPlayerGame(t)
	g.ApplyInput("a", PlayerInput{Fire: true})
	if len(g.projectiles) != 1 {
		t.Fatalf("got %d projectiles, want 1", len(g.projectiles))
	}
	if g.vehicles["a"].Bottles != StartBottles-1 {
		t.Errorf("bottles = %d, want %d", g.vehicles["a"].Bottles, StartBottles-1)
	}
	if g.projectiles[0].OwnerID != "a" {
		t.Errorf("owner = %q, want a", g.projectiles[0].OwnerID)
	}
}

func TestFireWithoutAmmo(t *testing.T) {
	g := twoPlayerGame(t)
	g.vehicles["a"].Bottles = 0
	g.ApplyInput("a", PlayerInput{Fire: true})
	if len(g.projectiles) != 0 {
		t.Error("firing with zero bottles must be a no-op")
	}
	if g.vehicles["a"].Bottles != 0 {
		t.Error("bottle count must not go negative")
	}
}

func TestUpdateAdvancesClock(t *testing.T) {
	g := twoPlayerGame(t)
	for i := 0; i < 10; i++ {
		g.update()
	}
	if g.Snapshot().RaceTime != 10 {
		t.Errorf("raceTime = %d, want 10", g.Snapshot().RaceTime)
	}
}

func TestBottleHitDamagesAndKnocksBack(t *testing.T) {
	g := twoPlayerGame(t)
	b := g.vehicles["b"]

	// Stationary bottle already overlapping b; owned by a so b is a valid target
	g.projectiles = append(g.projectiles, &Projectile{
		ID: "p1", OwnerID: "a",
		X: b.X - 10, Y: b.Y,
		Damage: BottleDamage, Active: true,
	})
	g.update()

	if b.Health != VehicleMaxHealth-BottleDamage {
		t.Errorf("health = %d, want %d", b.Health, VehicleMaxHealth-BottleDamage)
	}
	if b.VX <= 0 {
		t.Errorf("knockback should push b away from the bottle, VX = %v", b.VX)
	}
	if len(g.projectiles) != 0 {
		t.Error("spent bottle must be pruned")
	}
}

func TestBottleNeverHitsOwner(t *testing.T) {
	g := twoPlayerGame(t)
	a := g.vehicles["a"]

	g.projectiles = append(g.projectiles, &Projectile{
		ID: "p1", OwnerID: "a",
		X: a.X, Y: a.Y,
		Damage: BottleDamage, Active: true,
	})
	g.update()

	if a.Health != VehicleMaxHealth {
		t.Errorf("owner took %d damage from own bottle", VehicleMaxHealth-a.Health)
	}
}

func TestBottleHitsOneVehiclePerTick(t *testing.T) {
	g := NewGame("room1", DefaultLapTarget)
	g.Start([]RacerInfo{
		{PlayerID: "a", Name: "Alice"},
		{PlayerID: "b", Name: "Bob"},
		{PlayerID: "c", Name: "Carol"},
	})
	a := g.vehicles["a"]
	b := g.vehicles["b"]

	// Midway between a (100,100) and b (100,140): overlaps both, a is
	// first in join order
	g.projectiles = append(g.projectiles, &Projectile{
		ID: "p1", OwnerID: "c",
		X: 100, Y: 120,
		Damage: BottleDamage, Active: true,
	})
	g.update()

	if a.Health != VehicleMaxHealth-BottleDamage {
		t.Errorf("a health = %d, want %d", a.Health, VehicleMaxHealth-BottleDamage)
	}
	if b.Health != VehicleMaxHealth {
		t.Errorf("b health = %d, want %d; one bottle must hit one vehicle", b.Health, VehicleMaxHealth)
	}
}

func TestEliminationCreditsOwner(t *testing.T) {
	g := NewGame("room1", DefaultLapTarget)
	g.Start([]RacerInfo{
		{PlayerID: "a", Name: "Alice"},
		{PlayerID: "b", Name: "Bob"},
		{PlayerID: "c", Name: "Carol"},
	})
	b := g.vehicles["b"]
	b.Health = BottleDamage

	g.projectiles = append(g.projectiles, &Projectile{
		ID: "p1", OwnerID: "a",
		X: b.X, Y: b.Y,
		Damage: BottleDamage, Active: true,
	})
	g.update()

	if !b.Eliminated {
		t.Fatal("b should be eliminated")
	}
	if g.vehicles["a"].Eliminations != 1 {
		t.Errorf("a eliminations = %d, want 1", g.vehicles["a"].Eliminations)
	}
	if g.Ended() {
		t.Error("race with 2 standing vehicles must continue")
	}
}

func TestLastStandingWins(t *testing.T) {
	g := twoPlayerGame(t)
	done := make(chan RaceResult, 1)
	g.OnFinish(func(r RaceResult) { done <- r })

	b := g.vehicles["b"]
	b.Health = BottleDamage
	g.projectiles = append(g.projectiles, &Projectile{
		ID: "p1", OwnerID: "a",
		X: b.X, Y: b.Y,
		Damage: BottleDamage, Active: true,
	})
	g.update()

	if !g.Ended() {
		t.Fatal("race should be over")
	}
	r := <-done
	if r.WinnerID != "a" || r.WinnerName != "Alice" {
		t.Errorf("winner = %q (%q), want a (Alice)", r.WinnerID, r.WinnerName)
	}
	if len(r.Racers) != 2 {
		t.Fatalf("got %d racer results, want 2", len(r.Racers))
	}
	for _, rr := range r.Racers {
		if rr.Won != (rr.PlayerID == "a") {
			t.Errorf("racer %s Won = %v", rr.PlayerID, rr.Won)
		}
	}

	// Finished sessions ignore further input and ticks
	g.ApplyInput("a", PlayerInput{Fire: true})
	if len(g.projectiles) != 0 {
		t.Error("input after finish must be a no-op")
	}
	before := g.Snapshot().RaceTime
	g.update()
	if g.Snapshot().RaceTime != before {
		t.Error("ticks after finish must not advance the clock")
	}
}

func TestLapTargetWins(t *testing.T) {
	g := twoPlayerGame(t)
	a := g.vehicles["a"]
	a.Laps = DefaultLapTarget - 1
	a.X = 40
	a.Y = 80
	a.VX = 2

	g.update()

	if a.Laps != DefaultLapTarget {
		t.Fatalf("laps = %d, want %d", a.Laps, DefaultLapTarget)
	}
	if !g.Ended() {
		t.Fatal("reaching the lap target should end the race")
	}
	if g.Snapshot().WinnerID != "a" {
		t.Errorf("winner = %q, want a", g.Snapshot().WinnerID)
	}
}

func TestSpeedBoostAppliesAndReverts(t *testing.T) {
	g := twoPlayerGame(t)
	a := g.vehicles["a"]

	pu := &PowerUp{ID: "s1", Type: PowerUpSpeed}
	g.applyPowerUp(a, pu)
	if a.MaxSpeed != NominalMaxSpeed+SpeedBoostAmount {
		t.Errorf("max speed = %v, want %v", a.MaxSpeed, NominalMaxSpeed+SpeedBoostAmount)
	}

	// Boosts stack up to the hard cap only
	g.applyPowerUp(a, pu)
	g.applyPowerUp(a, pu)
	if a.MaxSpeed != BoostedMaxSpeed {
		t.Errorf("max speed = %v, want cap %v", a.MaxSpeed, BoostedMaxSpeed)
	}

	g.revertBoost("a")
	if a.MaxSpeed != NominalMaxSpeed {
		t.Errorf("max speed after revert = %v, want %v", a.MaxSpeed, NominalMaxSpeed)
	}
	a.CancelBoost()
}

func TestBoostRevertForDepartedVehicle(t *testing.T) {
	g := twoPlayerGame(t)
	g.applyPowerUp(g.vehicles["a"], &PowerUp{ID: "s1", Type: PowerUpSpeed})
	g.RemoveVehicle("a")
	// Must not panic on a vehicle that no longer exists
	g.revertBoost("a")
}

func TestHealthPowerUpCaps(t *testing.T) {
	g := twoPlayerGame(t)
	a := g.vehicles["a"]
	a.Health = 90
	g.applyPowerUp(a, &PowerUp{ID: "h1", Type: PowerUpHealth})
	if a.Health != VehicleMaxHealth {
		t.Errorf("health = %d, want cap %d", a.Health, VehicleMaxHealth)
	}
}

func TestAmmoPowerUp(t *testing.T) {
	g := twoPlayerGame(t)
	a := g.vehicles["a"]
	g.applyPowerUp(a, &PowerUp{ID: "m1", Type: PowerUpAmmo})
	if a.Bottles != StartBottles+BottleBonus {
		t.Errorf("bottles = %d, want %d", a.Bottles, StartBottles+BottleBonus)
	}
}

func TestShieldPowerUpIsCosmetic(t *testing.T) {
	g := twoPlayerGame(t)
	b := g.vehicles["b"]
	g.applyPowerUp(b, &PowerUp{ID: "sh1", Type: PowerUpShield})
	if !b.HasShield() {
		t.Fatal("shield effect should be active")
	}

	g.projectiles = append(g.projectiles, &Projectile{
		ID: "p1", OwnerID: "a",
		X: b.X, Y: b.Y,
		Damage: BottleDamage, Active: true,
	})
	g.update()
	if b.Health != VehicleMaxHealth-BottleDamage {
		t.Errorf("shield must not absorb damage, health = %d", b.Health)
	}
}

func TestPowerUpCollectionFirstInOrder(t *testing.T) {
	g := twoPlayerGame(t)
	a := g.vehicles["a"]
	b := g.vehicles["b"]
	for _, pu := range g.powerUps {
		pu.Collected = true
	}

	// Overlaps both vehicles; a joined first so a collects
	g.powerUps = append(g.powerUps, &PowerUp{ID: "m1", Type: PowerUpAmmo, X: 100, Y: 120})
	g.update()

	if a.Bottles != StartBottles+BottleBonus {
		t.Errorf("a bottles = %d, want %d", a.Bottles, StartBottles+BottleBonus)
	}
	if b.Bottles != StartBottles {
		t.Errorf("b bottles = %d, want %d", b.Bottles, StartBottles)
	}
	for _, puState := range g.Snapshot().PowerUps {
		if puState.ID == "m1" {
			t.Error("collected power-up must not be broadcast")
		}
	}
}

func TestPowerUpRespawnTrickle(t *testing.T) {
	g := twoPlayerGame(t)
	for _, pu := range g.powerUps {
		pu.Collected = true
	}
	g.raceTime = RespawnCheckTicks - 1
	g.update()

	if got := len(g.Snapshot().PowerUps); got != RespawnTrickle {
		t.Errorf("got %d live power-ups after respawn, want %d", got, RespawnTrickle)
	}
}

func TestPowerUpNoRespawnAboveFloor(t *testing.T) {
	g := twoPlayerGame(t)
	g.raceTime = RespawnCheckTicks - 1
	g.update()

	live := 0
	for _, pu := range g.powerUps {
		if !pu.Collected {
			live++
		}
	}
	if live < RespawnFloor {
		t.Skipf("vehicles collected power-ups during the tick, %d live", live)
	}
	if len(g.powerUps) != InitialPowerUps {
		t.Errorf("got %d power-ups, want %d with ample supply", len(g.powerUps), InitialPowerUps)
	}
}

func TestBroadcastSnapshot(t *testing.T) {
	g := twoPlayerGame(t)
	mock := &mockBroadcaster{}
	g.SetClient("a", mock)

	g.update()

	if mock.binaryCount() != 1 {
		t.Fatalf("got %d binary frames, want 1", mock.binaryCount())
	}
	var state SessionState
	if err := msgpack.Unmarshal(mock.lastBinary(), &state); err != nil {
		t.Fatalf("snapshot decode: %v", err)
	}
	if state.RoomID != "room1" {
		t.Errorf("roomID = %q, want room1", state.RoomID)
	}
	if state.RaceTime != 1 || len(state.Vehicles) != 2 {
		t.Errorf("state = raceTime %d / %d vehicles, want 1 / 2", state.RaceTime, len(state.Vehicles))
	}
	if state.LapTarget != DefaultLapTarget {
		t.Errorf("lapTarget = %d, want %d", state.LapTarget, DefaultLapTarget)
	}
}

func TestRemoveVehicleMidRace(t *testing.T) {
	g := NewGame("room1", DefaultLapTarget)
	g.Start([]RacerInfo{
		{PlayerID: "a", Name: "Alice"},
		{PlayerID: "b", Name: "Bob"},
		{PlayerID: "c", Name: "Carol"},
	})
	g.RemoveVehicle("b")

	state := g.Snapshot()
	if len(state.Vehicles) != 2 {
		t.Fatalf("got %d vehicles, want 2", len(state.Vehicles))
	}
	for _, v := range state.Vehicles {
		if v.ID == "b" {
			t.Error("removed vehicle still in snapshot")
		}
	}
	g.ApplyInput("b", PlayerInput{Fire: true})
	if len(g.projectiles) != 0 {
		t.Error("removed vehicle must not fire")
	}
}
