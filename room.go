package main

import (
	"errors"
	"sync"
)

// Routing errors surfaced to the requesting client as reason strings
var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyMember = errors.New("already a member of this room")
)

// Member is one player on a room's roster
type Member struct {
	ID           string
	Name         string
	AuthPlayerID int64
	client       Broadcaster
}

// Room is a joinable session container: a roster in join order, a host
// and one owned Game. The host is always a current member.
type Room struct {
	ID   string
	Name string

	mu      sync.RWMutex
	hostID  string
	members []*Member // join order, fixed for color/start-slot assignment
	session *Game
}

// Session returns the room's owned game
func (r *Room) Session() *Game {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// HostID returns the current host's member identity
func (r *Room) HostID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID
}

// MemberCount returns the roster size
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// IsMember reports whether the identity is on the roster
func (r *Room) IsMember(memberID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.ID == memberID {
			return true
		}
	}
	return false
}

// addMember appends to the roster; the join slot is fixed thereafter
func (r *Room) addMember(m *Member) error {
	r.mu.Lock()
	if len(r.members) >= MaxRoomMembers {
		r.mu.Unlock()
		return ErrRoomFull
	}
	for _, existing := range r.members {
		if existing.ID == m.ID {
			r.mu.Unlock()
			return ErrAlreadyMember
		}
	}
	r.members = append(r.members, m)
	session := r.session
	r.mu.Unlock()

	session.SetClient(m.ID, m.client)
	return nil
}

// removeMember drops a member and reassigns the host to the next member
// in join order if needed. Returns (found, roster now empty).
func (r *Room) removeMember(memberID string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, m := range r.members {
		if m.ID == memberID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, len(r.members) == 0
	}
	r.members = append(r.members[:idx], r.members[idx+1:]...)
	if r.hostID == memberID && len(r.members) > 0 {
		r.hostID = r.members[0].ID
	}
	return true, len(r.members) == 0
}

// StartRace begins the race if the requester is the host and enough
// members are present. Non-host requests and undersized lobbies are
// no-ops per the protocol's silent-authorization policy.
func (r *Room) StartRace(requesterID string) bool {
	r.mu.RLock()
	if requesterID != r.hostID || len(r.members) < MinRacers {
		r.mu.RUnlock()
		return false
	}
	racers := make([]RacerInfo, 0, len(r.members))
	for _, m := range r.members {
		racers = append(racers, RacerInfo{
			PlayerID:     m.ID,
			Name:         m.Name,
			AuthPlayerID: m.AuthPlayerID,
		})
	}
	session := r.session
	r.mu.RUnlock()

	if !session.Start(racers) {
		return false
	}
	go session.Run()
	return true
}

// Broadcast sends a JSON message to every room member
func (r *Room) Broadcast(msg Envelope) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.members {
		if m.client != nil {
			m.client.SendJSON(msg)
		}
	}
}

// ToState converts the roster to protocol state
func (r *Room) ToState() RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := RoomState{
		ID:         r.ID,
		Name:       r.Name,
		HostID:     r.hostID,
		MaxMembers: MaxRoomMembers,
		LapTarget:  r.session.lapTarget,
		Members:    make([]MemberState, 0, len(r.members)),
	}
	for i, m := range r.members {
		state.Members = append(state.Members, MemberState{
			ID:    m.ID,
			Name:  m.Name,
			Color: vehicleColors[i%len(vehicleColors)],
			Host:  m.ID == r.hostID,
		})
	}
	return state
}

// Registry is the process-wide room table. It exclusively owns all
// rooms; a room is destroyed the instant its roster becomes empty.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty room registry
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Room)}
}

// CreateRoom allocates a room with the creator as sole member and host.
// Always succeeds.
func (reg *Registry) CreateRoom(name string, host *Member, lapTarget int) *Room {
	id := GenerateUUID()
	room := &Room{
		ID:      id,
		Name:    name,
		hostID:  host.ID,
		members: []*Member{host},
		session: NewGame(id, lapTarget),
	}
	room.session.SetClient(host.ID, host.client)

	reg.mu.Lock()
	reg.rooms[id] = room
	reg.mu.Unlock()
	return room
}

// JoinRoom appends the member to the room's roster. Fails with a routing
// error if the room is absent, full, or the caller is already a member.
func (reg *Registry) JoinRoom(roomID string, m *Member) (*Room, error) {
	room := reg.GetRoom(roomID)
	if room == nil {
		return nil, ErrRoomNotFound
	}
	if err := room.addMember(m); err != nil {
		return nil, err
	}
	return room, nil
}

// LeaveRoom removes the member and destroys the room if it empties,
// stopping its tick loop and any pending effect timers. Idempotent if
// the member is already absent. Returns (room, destroyed).
func (reg *Registry) LeaveRoom(roomID, memberID string) (*Room, bool) {
	room := reg.GetRoom(roomID)
	if room == nil {
		return nil, false
	}
	room.Session().RemoveVehicle(memberID)
	found, empty := room.removeMember(memberID)
	if !found && !empty {
		return room, false
	}
	if empty {
		room.Session().Stop()
		reg.mu.Lock()
		delete(reg.rooms, roomID)
		reg.mu.Unlock()
		return room, true
	}
	return room, false
}

// GetRoom returns a room by ID, or nil
func (reg *Registry) GetRoom(id string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[id]
}

// ListRooms returns info about all live rooms
func (reg *Registry) ListRooms() []RoomInfo {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	list := make([]RoomInfo, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		list = append(list, RoomInfo{
			ID:      room.ID,
			Name:    room.Name,
			Members: room.MemberCount(),
			Racing:  room.Session().Started() && !room.Session().Ended(),
		})
	}
	return list
}

// RoomCount returns the number of live rooms
func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
