package repository

import (
	"phone-sim-demo/backend/contact/models"

	"gorm.io/gorm"
)

type ContactRepository interface {
	Create(contact *models.Contact) error
	Update(contact *models.Contact) error
	Delete(id string) error
	GetByID(id string) (*models.Contact, error)
	GetByName(name string) (*models.Contact, error)
	List() ([]models.Contact, error)
}

type GormContactRepository struct {
	db *gorm.DB
}

func NewGormContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

func (r *GormContactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

func (r *GormContactRepository) Update(contact *models.Contact) error {
	return r.db.Save(contact).Error
}

func (r *GormContactRepository) Delete(id string) error {
	return r.db.Delete(&models.Contact{}, "id = ?", id).Error
}

func (r *GormContactRepository) GetByID(id string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.First(&contact, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *GormContactRepository) GetByName(name string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.First(&contact, "name = ?", name).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *GormContactRepository) List() ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.Order("created_at ASC").Find(&contacts).Error
	return contacts, err
}
