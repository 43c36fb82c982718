package main

import (
	"log"
	"strconv"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them into rooms
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	registry   *Registry
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Auth & persistence
	db        *DB
	auth      *Auth
	analytics *Analytics
	// Online auth users: authPlayerID -> *Client
	onlineMu    sync.RWMutex
	onlineUsers map[int64]*Client
}

// NewHub creates a Hub. db may be nil; accounts and stats are then disabled.
func NewHub(db *DB) *Hub {
	h := &Hub{
		clients:     make(map[*Client]bool),
		register:    make(chan *Client, 64),
		unregister:  make(chan *Client, 64),
		registry:    NewRegistry(),
		ipConns:     make(map[string]int),
		db:          db,
		onlineUsers: make(map[int64]*Client),
	}
	if db != nil {
		h.auth = NewAuth(db)
		h.analytics = NewAnalytics(db)
	}
	return h
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			// A dropped connection leaves its room like an explicit leave
			client.leaveCurrentRoom()
			if client.authPlayerID != 0 {
				h.SetOffline(client.authPlayerID)
			}
		}
	}
}

// track forwards an event to the analytics pipeline, if enabled
func (h *Hub) track(evtType string, playerID int64, roomID, data string) {
	if h.analytics != nil {
		h.analytics.Track(evtType, playerID, roomID, data)
	}
}

// SetOnline marks an authenticated user as online
func (h *Hub) SetOnline(playerID int64, client *Client) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	h.onlineUsers[playerID] = client
}

// SetOffline removes an authenticated user from online tracking
func (h *Hub) SetOffline(playerID int64) {
	h.onlineMu.Lock()
	defer h.onlineMu.Unlock()
	delete(h.onlineUsers, playerID)
}

// IsOnline checks if an authenticated player is online
func (h *Hub) IsOnline(playerID int64) bool {
	h.onlineMu.RLock()
	defer h.onlineMu.RUnlock()
	_, ok := h.onlineUsers[playerID]
	return ok
}

// handleRaceFinish fires once per race: notify the room, then persist
// results for authenticated racers off the tick path.
func (h *Hub) handleRaceFinish(room *Room, result RaceResult) {
	room.Broadcast(Envelope{T: MsgGameOver, Data: GameOverMsg{
		WinnerID:   result.WinnerID,
		WinnerName: result.WinnerName,
	}})
	h.track(EvtRaceEnd, 0, result.RoomID, "")

	if h.db == nil {
		return
	}
	go func() {
		raceID, err := h.db.RecordRace(room.Name, result.Duration, result.WinnerName)
		if err != nil {
			log.Printf("record race: %v", err)
			return
		}
		for _, r := range result.Racers {
			if r.AuthPlayerID == 0 {
				continue
			}
			if err := h.db.RecordRacePlayer(raceID, r.AuthPlayerID, r.Laps, r.Eliminations, r.Won); err != nil {
				log.Printf("record race player: %v", err)
				continue
			}
			if err := h.db.UpdateStatsAfterRace(r.AuthPlayerID, r.Laps, r.Eliminations, r.Won, result.Duration); err != nil {
				log.Printf("update stats: %v", err)
				continue
			}
			if r.Eliminations > 0 {
				h.track(EvtElimination, r.AuthPlayerID, result.RoomID, strconv.Itoa(r.Eliminations))
			}
			for _, a := range CheckAchievements(h.db, r.AuthPlayerID, r.Laps, r.Eliminations, r.Won) {
				h.track(EvtAchievement, r.AuthPlayerID, result.RoomID, a.ID)
			}
		}
	}()
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
