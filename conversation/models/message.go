package models

import (
	"time"
)

// Message kinds
const (
	KindText           = "text"
	KindVoice          = "voice"
	KindRedPacket      = "redPacket"
	KindTransfer       = "transfer"
	KindSticker        = "sticker"
	KindImage          = "image"
	KindSimulatedImage = "simulated_image"
	KindVideoCallLog   = "videoCallLog"
	KindVoiceCallLog   = "voiceCallLog"
	KindSystem         = "system"
)

// Claim statuses for payment-like messages
const (
	ClaimUnclaimed = "unclaimed"
	ClaimClaimed   = "claimed"
	ClaimRejected  = "rejected"
)

// Message is one entry in a conversation log. IsSelf is true for
// user-authored messages and false for model-authored ones.
type Message struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	Text      string    `json:"text"`
	IsSelf    bool      `json:"is_self"`
	Timestamp time.Time `json:"timestamp"`

	// Kind-specific optional fields
	VoiceDuration  int    `json:"voice_duration,omitempty"`
	RedPacketTitle string `json:"red_packet_title,omitempty"`
	Amount         string `json:"amount,omitempty"`
	TransferRemark string `json:"transfer_remark,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
	StickerName    string `json:"sticker_name,omitempty"`
	Caption        string `json:"caption,omitempty"`
	ClaimStatus    string `json:"claim_status,omitempty"`
}

// IsPaymentLike reports whether the message carries a claimable payment
func (m *Message) IsPaymentLike() bool {
	return m.Kind == KindRedPacket || m.Kind == KindTransfer
}

// MessageRecord is the archived form of a Message
type MessageRecord struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	MessageID   string    `json:"message_id" gorm:"uniqueIndex"`
	ContactID   string    `json:"contact_id" gorm:"index"`
	Kind        string    `json:"kind"`
	Text        string    `json:"text"`
	IsSelf      bool      `json:"is_self"`
	Timestamp   time.Time `json:"timestamp"`
	ClaimStatus string    `json:"claim_status"`
	Extra       string    `json:"extra" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
