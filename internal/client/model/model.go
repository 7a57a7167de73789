package model

import (
	"encoding/json"
	"time"
)

type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
}

type Chat struct {
	ID            string   `json:"_id"`
	Name          string   `json:"chatName,omitempty"`
	IsGroup       bool     `json:"isGroupChat"`
	Users         []User   `json:"users"`
	LatestMessage *Message `json:"latestMessage,omitempty"`
	GroupAdmin    *User    `json:"groupAdmin,omitempty"`
	Avatar        string   `json:"chatAvatar,omitempty"`
	Description   string   `json:"chatDescription,omitempty"`
}

type Message struct {
	ID        string    `json:"_id"`
	Chat      ChatRef   `json:"chat"`
	Sender    User      `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatRef is the chat field of a message. The server sends either a bare
// id or a populated chat object depending on the endpoint.
type ChatRef struct {
	ID string
}

func (r *ChatRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

func (r ChatRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

// OtherUser returns the participant who is not me. Only meaningful for
// direct chats.
func (c *Chat) OtherUser(myID string) *User {
	for i := range c.Users {
		if c.Users[i].ID != myID {
			return &c.Users[i]
		}
	}
	return nil
}

// DisplayName is the group name, or the other participant's username for
// a direct chat.
func (c *Chat) DisplayName(myID string) string {
	if c.IsGroup {
		return c.Name
	}
	if u := c.OtherUser(myID); u != nil {
		return u.Username
	}
	return "Unknown"
}

// DisplayAvatar is the group avatar, or the other participant's avatar.
func (c *Chat) DisplayAvatar(myID string) string {
	if c.IsGroup {
		return c.Avatar
	}
	if u := c.OtherUser(myID); u != nil {
		return u.Avatar
	}
	return ""
}

// IsAdmin reports whether the given user administers this group chat.
func (c *Chat) IsAdmin(userID string) bool {
	return c.IsGroup && c.GroupAdmin != nil && c.GroupAdmin.ID == userID
}
