package repository

import (
	"encoding/json"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"phone-sim-demo/backend/conversation/models"
)

type MessageRepository interface {
	Save(contactID string, message *models.Message) error
	Update(contactID string, message *models.Message) error
	DeleteByMessageIDs(contactID string, messageIDs []string) error
	GetByContact(contactID string) ([]models.Message, error)
	ContactIDs() ([]string, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// extraFields carries the kind-specific optional fields as one JSON column
type extraFields struct {
	VoiceDuration  int    `json:"voice_duration,omitempty"`
	RedPacketTitle string `json:"red_packet_title,omitempty"`
	Amount         string `json:"amount,omitempty"`
	TransferRemark string `json:"transfer_remark,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	StickerName    string `json:"sticker_name,omitempty"`
	Caption        string `json:"caption,omitempty"`
}

func toRecord(contactID string, m *models.Message) *models.MessageRecord {
	extra, _ := json.Marshal(extraFields{
		VoiceDuration:  m.VoiceDuration,
		RedPacketTitle: m.RedPacketTitle,
		Amount:         m.Amount,
		TransferRemark: m.TransferRemark,
		ImageURL:       m.ImageURL,
		StickerName:    m.StickerName,
		Caption:        m.Caption,
	})
	return &models.MessageRecord{
		MessageID:   m.ID,
		ContactID:   contactID,
		Kind:        m.Kind,
		Text:        m.Text,
		IsSelf:      m.IsSelf,
		Timestamp:   m.Timestamp,
		ClaimStatus: m.ClaimStatus,
		Extra:       string(extra),
	}
}

func fromRecord(r *models.MessageRecord) models.Message {
	var extra extraFields
	if r.Extra != "" {
		_ = json.Unmarshal([]byte(r.Extra), &extra)
	}
	return models.Message{
		ID:             r.MessageID,
		Kind:           r.Kind,
		Text:           r.Text,
		IsSelf:         r.IsSelf,
		Timestamp:      r.Timestamp,
		ClaimStatus:    r.ClaimStatus,
		VoiceDuration:  extra.VoiceDuration,
		RedPacketTitle: extra.RedPacketTitle,
		Amount:         extra.Amount,
		TransferRemark: extra.TransferRemark,
		ImageURL:       extra.ImageURL,
		StickerName:    extra.StickerName,
		Caption:        extra.Caption,
	}
}

func (r *GormMessageRepository) Save(contactID string, message *models.Message) error {
	record := toRecord(contactID, message)
	// Idempotent on message_id so a replayed event does not duplicate rows
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "claim_status", "extra"}),
	}).Create(record).Error
}

func (r *GormMessageRepository) Update(contactID string, message *models.Message) error {
	return r.db.Model(&models.MessageRecord{}).
		Where("contact_id = ? AND message_id = ?", contactID, message.ID).
		Updates(map[string]interface{}{
			"text":         message.Text,
			"claim_status": message.ClaimStatus,
		}).Error
}

func (r *GormMessageRepository) DeleteByMessageIDs(contactID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return r.db.
		Where("contact_id = ? AND message_id IN ?", contactID, messageIDs).
		Delete(&models.MessageRecord{}).Error
}

func (r *GormMessageRepository) GetByContact(contactID string) ([]models.Message, error) {
	var records []models.MessageRecord
	err := r.db.Where("contact_id = ?", contactID).
		Order("timestamp ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(records))
	for i := range records {
		messages = append(messages, fromRecord(&records[i]))
	}
	return messages, nil
}

func (r *GormMessageRepository) ContactIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&models.MessageRecord{}).
		Distinct("contact_id").
		Pluck("contact_id", &ids).Error
	return ids, err
}
