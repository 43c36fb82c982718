package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // inputs arrive at tick rate
	maxNameLen        = 16
	maxRoomNameLen    = 30
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerID   string // member identity in the current room
	roomID     string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	// Auth state
	authPlayerID int64  // 0 = unauthenticated/guest
	authUsername string // "" = unauthenticated
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Binary input messages: 2 bytes [0x01, flags]
		if msgType == websocket.BinaryMessage && len(message) == 2 && message[0] == 0x01 {
			c.handleBinaryInput(message[1])
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF marker byte so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope).
// A malformed payload drops the message and leaves state unchanged.
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgCreateRoom:
		c.handleCreateRoom(env.D)
	case MsgJoinRoom:
		c.handleJoinRoom(env.D)
	case MsgLeaveRoom:
		c.leaveCurrentRoom()
	case MsgStartGame:
		c.handleStartGame(env.D)
	case MsgPlayerInput:
		c.handlePlayerInput(env.D)
	case MsgListRooms:
		c.handleListRooms()
	case MsgCheckRoom:
		c.handleCheckRoom(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfile:
		c.handleProfile()
	case MsgLeaderboard:
		c.handleLeaderboard()
	}
}

func cleanName(name, fallback string, max int) string {
	if name == "" {
		name = fallback
	}
	if len(name) > max {
		name = name[:max]
	}
	return name
}

func (c *Client) handleCreateRoom(data json.RawMessage) {
	var msg CreateRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.roomID != "" {
		c.leaveCurrentRoom()
	}

	host := &Member{
		ID:           GenerateID(4),
		Name:         cleanName(msg.PlayerName, "Racer", maxNameLen),
		AuthPlayerID: c.authPlayerID,
		client:       c,
	}
	roomName := cleanName(msg.RoomName, "Bottle Run", maxRoomNameLen)

	room := c.hub.registry.CreateRoom(roomName, host, msg.Laps)
	room.Session().OnFinish(func(result RaceResult) {
		c.hub.handleRaceFinish(room, result)
	})
	c.roomID = room.ID
	c.playerID = host.ID

	c.hub.track(EvtRoomCreated, c.authPlayerID, room.ID, "")
	c.SendJSON(Envelope{T: MsgRoomCreated, Data: RoomCreatedMsg{RoomID: room.ID, Room: room.ToState()}})
}

func (c *Client) handleJoinRoom(data json.RawMessage) {
	var msg JoinRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.roomID == msg.RoomID && c.roomID != "" {
		c.SendJSON(Envelope{T: MsgJoinError, Data: JoinErrorMsg{Reason: ErrAlreadyMember.Error()}})
		return
	}
	if c.roomID != "" {
		// Stale client state: leave the old room before joining the new one
		c.leaveCurrentRoom()
	}

	m := &Member{
		ID:           GenerateID(4),
		Name:         cleanName(msg.PlayerName, "Racer", maxNameLen),
		AuthPlayerID: c.authPlayerID,
		client:       c,
	}
	room, err := c.hub.registry.JoinRoom(msg.RoomID, m)
	if err != nil {
		c.SendJSON(Envelope{T: MsgJoinError, Data: JoinErrorMsg{Reason: err.Error()}})
		return
	}
	c.roomID = room.ID
	c.playerID = m.ID

	c.SendJSON(Envelope{T: MsgRoomJoined, Data: RoomJoinedMsg{RoomID: room.ID, Room: room.ToState()}})
	room.Broadcast(Envelope{T: MsgPlayerJoined, Data: PlayerJoinedMsg{Room: room.ToState(), PlayerID: m.ID}})
}

func (c *Client) handleStartGame(data json.RawMessage) {
	var msg StartGameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	room := c.hub.registry.GetRoom(msg.RoomID)
	if room == nil {
		return
	}
	// Non-host or undersized start requests are silently ignored
	if !room.StartRace(c.playerID) {
		return
	}
	c.hub.track(EvtRaceStart, c.authPlayerID, room.ID, "")
	room.Broadcast(Envelope{T: MsgGameStarted, Data: GameStartedMsg{Session: room.Session().Snapshot()}})
}

func (c *Client) handlePlayerInput(data json.RawMessage) {
	if c.roomID == "" || c.playerID == "" {
		return
	}
	var msg PlayerInputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	roomID := msg.RoomID
	if roomID == "" {
		roomID = c.roomID
	}
	room := c.hub.registry.GetRoom(roomID)
	if room == nil {
		return
	}
	room.Session().ApplyInput(c.playerID, PlayerInput{
		Forward:   msg.Input.Up,
		Brake:     msg.Input.Down,
		TurnLeft:  msg.Input.Left,
		TurnRight: msg.Input.Right,
		Fire:      msg.Input.Space,
	})
}

// handleBinaryInput decodes a compact 1-byte intent bitmask
func (c *Client) handleBinaryInput(flags byte) {
	if c.roomID == "" || c.playerID == "" {
		return
	}
	room := c.hub.registry.GetRoom(c.roomID)
	if room == nil {
		return
	}
	room.Session().ApplyInput(c.playerID, PlayerInput{
		Forward:   flags&0x01 != 0,
		Brake:     flags&0x02 != 0,
		TurnLeft:  flags&0x04 != 0,
		TurnRight: flags&0x08 != 0,
		Fire:      flags&0x10 != 0,
	})
}

// leaveCurrentRoom detaches the client from its room, broadcasting
// playerLeft to the remaining members unless the room was just destroyed
func (c *Client) leaveCurrentRoom() {
	if c.roomID == "" {
		return
	}
	room, destroyed := c.hub.registry.LeaveRoom(c.roomID, c.playerID)
	if room != nil && !destroyed {
		room.Broadcast(Envelope{T: MsgPlayerLeft, Data: PlayerLeftMsg{Room: room.ToState(), PlayerID: c.playerID}})
	}
	c.roomID = ""
	c.playerID = ""
}

func (c *Client) handleListRooms() {
	c.SendJSON(Envelope{T: MsgRooms, Data: c.hub.registry.ListRooms()})
}

func (c *Client) handleCheckRoom(data json.RawMessage) {
	var msg CheckRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	room := c.hub.registry.GetRoom(msg.RoomID)
	if room == nil {
		c.SendJSON(Envelope{T: MsgRoomChecked, Data: RoomCheckedMsg{RoomID: msg.RoomID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgRoomChecked, Data: RoomCheckedMsg{
		RoomID:  msg.RoomID,
		Exists:  true,
		Name:    room.Name,
		Members: room.MemberCount(),
	}})
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.authPlayerID = id
	c.authUsername = msg.Username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: msg.Username, PlayerID: id}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "invalid token"}})
		return
	}
	c.authPlayerID = id
	c.authUsername = username
	c.hub.SetOnline(id, c)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: msg.Token, Username: username, PlayerID: id}})
}

func (c *Client) handleProfile() {
	if c.hub.db == nil || c.authPlayerID == 0 {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "not authenticated"}})
		return
	}
	stats, err := c.hub.db.GetStats(c.authPlayerID)
	if err != nil || stats == nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "profile not found"}})
		return
	}
	c.SendJSON(Envelope{T: MsgProfileData, Data: ProfileDataMsg{
		Username:     c.authUsername,
		Races:        stats.Races,
		Wins:         stats.Wins,
		Laps:         stats.Laps,
		Eliminations: stats.Eliminations,
		Playtime:     stats.Playtime,
	}})
}

func (c *Client) handleLeaderboard() {
	if c.hub.db == nil {
		c.SendJSON(Envelope{T: MsgLeaders, Data: []LeaderboardEntry{}})
		return
	}
	leaders, err := c.hub.db.GetLeaderboard(20)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "leaderboard unavailable"}})
		return
	}
	c.SendJSON(Envelope{T: MsgLeaders, Data: leaders})
}
