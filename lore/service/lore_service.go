package service

import (
	"strings"

	"github.com/google/uuid"

	"phone-sim-demo/backend/lore/models"
	"phone-sim-demo/backend/lore/repository"
	apperrors "phone-sim-demo/backend/pkg/errors"
)

// LoreService manages lore entries and forbidden words and implements the
// lore index used by the prompt composer
type LoreService struct {
	lore      repository.LoreRepository
	forbidden repository.ForbiddenWordRepository
}

func NewLoreService(lore repository.LoreRepository, forbidden repository.ForbiddenWordRepository) *LoreService {
	return &LoreService{lore: lore, forbidden: forbidden}
}

// Select returns every global entry plus the local entries owned by the
// given character name, in insertion order. An empty result is valid.
func (s *LoreService) Select(characterName string) ([]models.LoreEntry, error) {
	entries, err := s.lore.List()
	if err != nil {
		return nil, err
	}

	selected := make([]models.LoreEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Scope == models.ScopeGlobal {
			selected = append(selected, entry)
			continue
		}
		if entry.Scope == models.ScopeLocal && entry.CharacterName == characterName {
			selected = append(selected, entry)
		}
	}
	return selected, nil
}

// ForbiddenWords returns the current restricted-term set
func (s *LoreService) ForbiddenWords() ([]models.ForbiddenWord, error) {
	return s.forbidden.List()
}

func (s *LoreService) CreateEntry(req *models.CreateLoreEntryRequest) (*models.LoreEntry, error) {
	if req.Scope != models.ScopeGlobal && req.Scope != models.ScopeLocal {
		return nil, apperrors.NewBadRequestError("INVALID_SCOPE", "scope must be global or local")
	}
	if req.Scope == models.ScopeLocal && strings.TrimSpace(req.CharacterName) == "" {
		return nil, apperrors.NewBadRequestError("INVALID_SCOPE", "local entries require a character name")
	}

	entry := &models.LoreEntry{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Content:       req.Content,
		Tags:          req.Tags,
		Scope:         req.Scope,
		CharacterName: req.CharacterName,
	}
	if err := s.lore.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LoreService) DeleteEntry(id string) error {
	return s.lore.Delete(id)
}

func (s *LoreService) ListEntries() ([]models.LoreEntry, error) {
	return s.lore.List()
}

func (s *LoreService) AddForbiddenWord(word, category string) (*models.ForbiddenWord, error) {
	if strings.TrimSpace(word) == "" {
		return nil, apperrors.NewBadRequestError("INVALID_WORD", "word is required")
	}
	entry := &models.ForbiddenWord{
		ID:       uuid.NewString(),
		Word:     word,
		Category: category,
	}
	if err := s.forbidden.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *LoreService) DeleteForbiddenWord(id string) error {
	return s.forbidden.Delete(id)
}
