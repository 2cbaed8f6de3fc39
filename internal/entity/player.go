package entity

type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarToken string `json:"avatar_token,omitempty"`
	Connected   bool   `json:"connected"`
	RoomID      string `json:"room_id,omitempty"`
}

type User struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarToken string `json:"avatar_token,omitempty"`
}
