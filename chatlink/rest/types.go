package rest

// Credentials is the request body for registration and login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the token returned after successful authentication.
type TokenResponse struct {
	Token string `json:"token"`
}

// RoomInfo is room metadata as returned by the server.
type RoomInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// CreateRoomRequest is the request body for creating a room.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// MessageInfo is a single message in the history, using the same field
// naming as the live wire frames.
type MessageInfo struct {
	ID       int64  `json:"id"`
	RoomID   int64  `json:"room_id"`
	SenderID int    `json:"sender_id"`
	Username string `json:"username"`
	Content  string `json:"content"`
	TS       int64  `json:"ts"`
}

// MessagesResponse contains a page of history with pagination info.
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
	HasMore  bool          `json:"has_more"`
}

// ErrorResponse is the server's error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
