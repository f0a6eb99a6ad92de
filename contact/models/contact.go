package models

import (
	"time"
)

// Contact represents a chat contact with its persona settings
type Contact struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null;index"`
	Remark         string    `json:"remark"`
	Avatar         string    `json:"avatar"`
	Persona        string    `json:"persona"`
	ChatBackground string    `json:"chat_background"`
	MaxWords       int       `json:"max_words" gorm:"default:50"`
	StyleID        string    `json:"style_id" gorm:"default:normal"`
	Timezone       string    `json:"timezone"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DisplayName returns the remark when set, the real name otherwise
func (c *Contact) DisplayName() string {
	if c.Remark != "" {
		return c.Remark
	}
	return c.Name
}

// UserProfile is the identity the user chats as
type UserProfile struct {
	Name      string `json:"name"`
	Avatar    string `json:"avatar"`
	Signature string `json:"signature"`
	Persona   string `json:"persona"`
}

// CreateContactRequest is the payload for creating a contact
type CreateContactRequest struct {
	Name           string `json:"name" binding:"required"`
	Remark         string `json:"remark"`
	Avatar         string `json:"avatar"`
	Persona        string `json:"persona"`
	ChatBackground string `json:"chat_background"`
	MaxWords       int    `json:"max_words"`
	StyleID        string `json:"style_id"`
}
