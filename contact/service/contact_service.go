package service

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"phone-sim-demo/backend/contact/models"
	"phone-sim-demo/backend/contact/repository"
	"phone-sim-demo/backend/pkg/config"
	apperrors "phone-sim-demo/backend/pkg/errors"
)

// ContactService manages the contact registry and the active user profile
type ContactService struct {
	repo repository.ContactRepository

	profileMu sync.RWMutex
	profile   models.UserProfile
}

func NewContactService(repo repository.ContactRepository) *ContactService {
	cfg := config.Get()
	return &ContactService{
		repo: repo,
		profile: models.UserProfile{
			Name: cfg.Chat.UserDisplayName,
		},
	}
}

func (s *ContactService) CreateContact(req *models.CreateContactRequest) (*models.Contact, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.NewBadRequestError("INVALID_CONTACT", "contact name is required")
	}

	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = config.Get().Chat.DefaultMaxWords
	}
	styleID := req.StyleID
	if styleID == "" {
		styleID = "normal"
	}

	contact := &models.Contact{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Remark:         req.Remark,
		Avatar:         req.Avatar,
		Persona:        req.Persona,
		ChatBackground: req.ChatBackground,
		MaxWords:       maxWords,
		StyleID:        styleID,
	}
	if err := s.repo.Create(contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) UpdateContact(contact *models.Contact) error {
	if strings.TrimSpace(contact.Name) == "" {
		return apperrors.NewBadRequestError("INVALID_CONTACT", "contact name is required")
	}
	return s.repo.Update(contact)
}

func (s *ContactService) DeleteContact(id string) error {
	return s.repo.Delete(id)
}

// GetContact always reads the current stored value so persona edits take
// effect on the next generation turn
func (s *ContactService) GetContact(id string) (*models.Contact, error) {
	contact, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("CONTACT_NOT_FOUND", "contact does not exist")
		}
		return nil, err
	}
	return contact, nil
}

func (s *ContactService) ListContacts() ([]models.Contact, error) {
	return s.repo.List()
}

// Profile returns the active user profile
func (s *ContactService) Profile() models.UserProfile {
	s.profileMu.RLock()
	defer s.profileMu.RUnlock()
	return s.profile
}

// SetProfile replaces the active user profile
func (s *ContactService) SetProfile(profile models.UserProfile) {
	s.profileMu.Lock()
	defer s.profileMu.Unlock()
	if strings.TrimSpace(profile.Name) == "" {
		profile.Name = config.Get().Chat.UserDisplayName
	}
	s.profile = profile
}
