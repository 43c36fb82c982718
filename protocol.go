package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreateRoom  = "createRoom"
	MsgJoinRoom    = "joinRoom"
	MsgLeaveRoom   = "leaveRoom"
	MsgStartGame   = "startGame"
	MsgPlayerInput = "playerInput"
	MsgListRooms   = "listRooms"
	MsgCheckRoom   = "checkRoom"
	MsgRegister    = "register"
	MsgLogin       = "login"
	MsgAuth        = "auth"
	MsgProfile     = "profile"
	MsgLeaderboard = "leaderboard"
)

// Server -> Client message types
const (
	MsgRoomCreated  = "roomCreated"
	MsgRoomJoined   = "roomJoined"
	MsgPlayerJoined = "playerJoined"
	MsgJoinError    = "joinError"
	MsgPlayerLeft   = "playerLeft"
	MsgGameStarted  = "gameStarted"
	MsgGameOver     = "gameOver"
	MsgGameState    = "gameStateUpdate"
	MsgRooms        = "rooms"
	MsgRoomChecked  = "roomChecked"
	MsgAuthOK       = "authOk"
	MsgProfileData  = "profileData"
	MsgLeaders      = "leaders"
	MsgError        = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// WireInput is the raw 5-bit intent vector sent by the client
type WireInput struct {
	Up    bool `json:"up"`    // accelerate
	Down  bool `json:"down"`  // brake
	Left  bool `json:"left"`  // turn left
	Right bool `json:"right"` // turn right
	Space bool `json:"space"` // throw bottle
}

// CreateRoomMsg is sent when a player wants to open a new room
type CreateRoomMsg struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
	Laps       int    `json:"laps,omitempty"`
}

// JoinRoomMsg is sent when a player wants to join an existing room
type JoinRoomMsg struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// StartGameMsg is sent by the host to start the race
type StartGameMsg struct {
	RoomID string `json:"roomId"`
}

// PlayerInputMsg carries the per-tick intent vector
type PlayerInputMsg struct {
	RoomID string    `json:"roomId"`
	Input  WireInput `json:"input"`
}

// CheckRoomMsg asks whether a room exists
type CheckRoomMsg struct {
	RoomID string `json:"roomId"`
}

// MemberState describes one room member in lobby messages
type MemberState struct {
	ID    string `json:"id"`
	Name  string `json:"n"`
	Color string `json:"c"`
	Host  bool   `json:"h,omitempty"`
}

// RoomState describes a room's roster
type RoomState struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	HostID     string        `json:"host"`
	MaxMembers int           `json:"max"`
	LapTarget  int           `json:"laps"`
	Members    []MemberState `json:"members"`
}

// RoomCreatedMsg confirms room creation to the caller
type RoomCreatedMsg struct {
	RoomID string    `json:"roomId"`
	Room   RoomState `json:"room"`
}

// RoomJoinedMsg confirms a join to the caller
type RoomJoinedMsg struct {
	RoomID string    `json:"roomId"`
	Room   RoomState `json:"room"`
}

// PlayerJoinedMsg is broadcast to all members when someone joins
type PlayerJoinedMsg struct {
	Room     RoomState `json:"room"`
	PlayerID string    `json:"playerId"`
}

// PlayerLeftMsg is broadcast to remaining members when someone leaves
type PlayerLeftMsg struct {
	Room     RoomState `json:"room"`
	PlayerID string    `json:"playerId"`
}

// JoinErrorMsg reports a routing failure to the caller only
type JoinErrorMsg struct {
	Reason string `json:"reason"`
}

// VehicleState is broadcast per vehicle each tick
type VehicleState struct {
	ID         string  `json:"id"`
	Name       string  `json:"n"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	Heading    float64 `json:"r"`
	Health     int     `json:"hp"`
	MaxHealth  int     `json:"mhp"`
	MaxSpeed   float64 `json:"ms"`
	Bottles    int     `json:"b"`
	Laps       int     `json:"l"`
	Eliminated bool    `json:"e"`
	Shield     bool    `json:"sh,omitempty"`
	Color      string  `json:"c"`
}

// ProjectileState is broadcast per live bottle
type ProjectileState struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Owner string  `json:"o"`
}

// PowerUpState is broadcast per uncollected power-up
type PowerUpState struct {
	ID   string  `json:"id"`
	Type string  `json:"k"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// SessionState is the full authoritative snapshot broadcast every tick
type SessionState struct {
	RoomID      string            `json:"roomId"`
	Vehicles    []VehicleState    `json:"v"`
	Projectiles []ProjectileState `json:"pr"`
	PowerUps    []PowerUpState    `json:"pu"`
	Started     bool              `json:"started"`
	Ended       bool              `json:"ended"`
	WinnerID    string            `json:"winner,omitempty"`
	RaceTime    uint64            `json:"raceTime"`
	LapTarget   int               `json:"laps"`
}

// GameStartedMsg is broadcast when the host starts the race
type GameStartedMsg struct {
	Session SessionState `json:"session"`
}

// GameOverMsg is broadcast once when the race finishes
type GameOverMsg struct {
	WinnerID   string `json:"winnerId,omitempty"`
	WinnerName string `json:"winnerName,omitempty"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Racing  bool   `json:"racing"`
}

// RoomCheckedMsg is the response to a room existence check
type RoomCheckedMsg struct {
	RoomID  string `json:"roomId"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Members int    `json:"members,omitempty"`
}

// RegisterMsg creates a new account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with username/password
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg authenticates with a previously issued token
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"playerId"`
}

// ProfileDataMsg carries career stats for the authenticated player
type ProfileDataMsg struct {
	Username     string  `json:"username"`
	Races        int     `json:"races"`
	Wins         int     `json:"wins"`
	Laps         int     `json:"laps"`
	Eliminations int     `json:"eliminations"`
	Playtime     float64 `json:"playtime"`
}

// ErrorMsg sends a generic error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
