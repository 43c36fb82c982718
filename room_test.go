package main

import (
	"fmt"
	"testing"
)

func member(id, name string) *Member {
	return &Member{ID: id, Name: name, client: &mockBroadcaster{}}
}

func TestCreateRoom(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)

	if room.ID == "" {
		t.Fatal("room should get an ID")
	}
	if reg.GetRoom(room.ID) != room {
		t.Error("room not registered")
	}
	if room.HostID() != "a" {
		t.Errorf("host = %q, want a", room.HostID())
	}
	if room.MemberCount() != 1 || !room.IsMember("a") {
		t.Error("creator should be the sole member")
	}
	if room.Session().Started() {
		t.Error("fresh room must be in lobby")
	}
	if room.Session().lapTarget != DefaultLapTarget {
		t.Errorf("lapTarget = %d, want default %d", room.Session().lapTarget, DefaultLapTarget)
	}
}

func TestJoinRoom(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)

	joined, err := reg.JoinRoom(room.ID, member("b", "Bob"))
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if joined != room || room.MemberCount() != 2 || !room.IsMember("b") {
		t.Error("join should add Bob to the roster")
	}
	if room.HostID() != "a" {
		t.Error("joining must not change the host")
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.JoinRoom("nope", member("b", "Bob")); err != ErrRoomNotFound {
		t.Errorf("err = %v, want ErrRoomNotFound", err)
	}
}

func TestJoinRoomFull(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("p0", "Player0"), 0)
	for i := 1; i < MaxRoomMembers; i++ {
		id := fmt.Sprintf("p%d", i)
		if _, err := reg.JoinRoom(room.ID, member(id, id)); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}

	if _, err := reg.JoinRoom(room.ID, member("extra", "Extra")); err != ErrRoomFull {
		t.Errorf("err = %v, want ErrRoomFull", err)
	}
	if room.MemberCount() != MaxRoomMembers {
		t.Errorf("roster = %d, want %d", room.MemberCount(), MaxRoomMembers)
	}
}

func TestJoinRoomTwice(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)
	reg.JoinRoom(room.ID, member("b", "Bob"))

	if _, err := reg.JoinRoom(room.ID, member("b", "Bob")); err != ErrAlreadyMember {
		t.Errorf("err = %v, want ErrAlreadyMember", err)
	}
	if room.MemberCount() != 2 {
		t.Errorf("roster = %d, want 2", room.MemberCount())
	}
}

func TestLeaveReassignsHost(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)
	reg.JoinRoom(room.ID, member("b", "Bob"))
	reg.JoinRoom(room.ID, member("c", "Carol"))

	_, destroyed := reg.LeaveRoom(room.ID, "a")
	if destroyed {
		t.Fatal("room with members left must survive")
	}
	if room.HostID() != "b" {
		t.Errorf("host = %q, want next in join order b", room.HostID())
	}
	if room.MemberCount() != 2 || room.IsMember("a") {
		t.Error("Alice should be off the roster")
	}
}

func TestLeaveNonHostKeepsHost(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)
	reg.JoinRoom(room.ID, member("b", "Bob"))

	reg.LeaveRoom(room.ID, "b")
	if room.HostID() != "a" {
		t.Errorf("host = %q, want a", room.HostID())
	}
}

func TestLeaveLastMemberDestroysRoom(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)

	_, destroyed := reg.LeaveRoom(room.ID, "a")
	if !destroyed {
		t.Fatal("emptying the roster must destroy the room")
	}
	if reg.GetRoom(room.ID) != nil {
		t.Error("destroyed room still in registry")
	}
	if reg.RoomCount() != 0 {
		t.Errorf("room count = %d, want 0", reg.RoomCount())
	}
}

func TestLeaveUnknownMember(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)

	_, destroyed := reg.LeaveRoom(room.ID, "ghost")
	if destroyed {
		t.Fatal("unknown member must not destroy the room")
	}
	if room.MemberCount() != 1 {
		t.Errorf("roster = %d, want 1", room.MemberCount())
	}
}

func TestLeaveUnknownRoom(t *testing.T) {
	reg := NewRegistry()
	if room, destroyed := reg.LeaveRoom("nope", "a"); room != nil || destroyed {
		t.Error("leaving an unknown room must be a no-op")
	}
}

func TestStartRaceRequiresHost(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)
	reg.JoinRoom(room.ID, member("b", "Bob"))

	if room.StartRace("b") {
		t.Error("non-host start request must be a no-op")
	}
	if room.Session().Started() {
		t.Error("race should not have started")
	}
}

func TestStartRaceRequiresTwoMembers(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)

	if room.StartRace("a") {
		t.Error("solo lobby start must be a no-op")
	}
	if room.Session().Started() {
		t.Error("race should not have started")
	}
}

func TestStartRace(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 0)
	reg.JoinRoom(room.ID, member("b", "Bob"))

	if !room.StartRace("a") {
		t.Fatal("host start with 2 members should succeed")
	}
	if !room.Session().Started() {
		t.Fatal("session should be racing")
	}
	if room.StartRace("a") {
		t.Error("second start must be a no-op")
	}

	// Drain the room so the tick loop stops
	reg.LeaveRoom(room.ID, "b")
	if _, destroyed := reg.LeaveRoom(room.ID, "a"); !destroyed {
		t.Error("room should be destroyed once empty")
	}
}

func TestListRooms(t *testing.T) {
	reg := NewRegistry()
	r1 := reg.CreateRoom("Track1", member("a", "Alice"), 0)
	reg.CreateRoom("Track2", member("b", "Bob"), 5)

	list := reg.ListRooms()
	if len(list) != 2 {
		t.Fatalf("got %d rooms, want 2", len(list))
	}
	for _, info := range list {
		if info.Racing {
			t.Errorf("room %s reported racing in lobby", info.ID)
		}
	}

	reg.JoinRoom(r1.ID, member("c", "Carol"))
	room := reg.GetRoom(r1.ID)
	room.StartRace("a")
	defer func() {
		reg.LeaveRoom(r1.ID, "a")
		reg.LeaveRoom(r1.ID, "c")
	}()

	for _, info := range reg.ListRooms() {
		if info.ID == r1.ID && !info.Racing {
			t.Error("started room should report racing")
		}
	}
}

func TestRoomToState(t *testing.T) {
	reg := NewRegistry()
	room := reg.CreateRoom("Track1", member("a", "Alice"), 5)
	reg.JoinRoom(room.ID, member("b", "Bob"))

	state := room.ToState()
	if state.Name != "Track1" || state.HostID != "a" {
		t.Errorf("state = %+v", state)
	}
	if state.MaxMembers != MaxRoomMembers || state.LapTarget != 5 {
		t.Errorf("maxMembers/lapTarget = %d/%d", state.MaxMembers, state.LapTarget)
	}
	if len(state.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(state.Members))
	}
	if !state.Members[0].Host || state.Members[1].Host {
		t.Error("only the host member should carry the host flag")
	}
	if state.Members[0].Color == state.Members[1].Color {
		t.Error("join slots should carry distinct colors")
	}
}
