package repository

import (
	"phone-sim-demo/backend/lore/models"

	"gorm.io/gorm"
)

type LoreRepository interface {
	Create(entry *models.LoreEntry) error
	Delete(id string) error
	List() ([]models.LoreEntry, error)
}

type ForbiddenWordRepository interface {
	Create(word *models.ForbiddenWord) error
	Delete(id string) error
	List() ([]models.ForbiddenWord, error)
}

type GormLoreRepository struct {
	db *gorm.DB
}

func NewGormLoreRepository(db *gorm.DB) *GormLoreRepository {
	return &GormLoreRepository{db: db}
}

func (r *GormLoreRepository) Create(entry *models.LoreEntry) error {
	return r.db.Create(entry).Error
}

func (r *GormLoreRepository) Delete(id string) error {
	return r.db.Delete(&models.LoreEntry{}, "id = ?", id).Error
}

// List returns entries in insertion order; the lore index depends on this
// being stable
func (r *GormLoreRepository) List() ([]models.LoreEntry, error) {
	var entries []models.LoreEntry
	err := r.db.Order("created_at ASC").Find(&entries).Error
	return entries, err
}

type GormForbiddenWordRepository struct {
	db *gorm.DB
}

func NewGormForbiddenWordRepository(db *gorm.DB) *GormForbiddenWordRepository {
	return &GormForbiddenWordRepository{db: db}
}

func (r *GormForbiddenWordRepository) Create(word *models.ForbiddenWord) error {
	return r.db.Create(word).Error
}

func (r *GormForbiddenWordRepository) Delete(id string) error {
	return r.db.Delete(&models.ForbiddenWord{}, "id = ?", id).Error
}

func (r *GormForbiddenWordRepository) List() ([]models.ForbiddenWord, error) {
	var words []models.ForbiddenWord
	err := r.db.Find(&words).Error
	return words, err
}
