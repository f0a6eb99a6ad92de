package models

import (
	"time"
)

// Lore entry scopes
const (
	ScopeGlobal = "global"
	ScopeLocal  = "local"
)

// LoreEntry is a reusable piece of world/setting text injected into the
// generation context, globally or for one character. Immutable once created.
type LoreEntry struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"not null"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags" gorm:"serializer:json"`
	Scope         string    `json:"scope" gorm:"not null;index"`
	CharacterName string    `json:"character_name" gorm:"index"`
	CreatedAt     time.Time `json:"created_at"`
}

// ForbiddenWord is a prompt-level negative constraint. The pipeline only
// forwards the list to the model; it never post-filters replies against it.
type ForbiddenWord struct {
	ID       string `json:"id" gorm:"primaryKey"`
	Word     string `json:"word" gorm:"not null"`
	Category string `json:"category"`
}

// CreateLoreEntryRequest is the payload for creating a lore entry
type CreateLoreEntryRequest struct {
	Name          string   `json:"name" binding:"required"`
	Content       string   `json:"content" binding:"required"`
	Tags          []string `json:"tags"`
	Scope         string   `json:"scope" binding:"required"`
	CharacterName string   `json:"character_name"`
}
