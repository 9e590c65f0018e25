package models

import "time"

// InviteeFields is the common shape of a person to be associated with a
// multi-party record. Invitees are owned exclusively by their parent record;
// for funding/work/peer-review sections the registry entry is written once
// per invitee, so the put-code and processing outcome live here.
type InviteeFields struct {
	InviteeID   int        `gorm:"primaryKey;column:invitee_id" json:"invitee_id"`
	RecordID    int        `gorm:"column:record_id" json:"record_id"`
	Identifier  *string    `gorm:"column:identifier" json:"identifier,omitempty"`
	Email       *string    `gorm:"column:email" json:"email,omitempty"`
	FirstName   *string    `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName    *string    `gorm:"column:last_name" json:"last_name,omitempty"`
	Orcid       *string    `gorm:"column:orcid" json:"orcid,omitempty"`
	PutCode     *int       `gorm:"column:put_code" json:"put_code,omitempty"`
	Visibility  *string    `gorm:"column:visibility" json:"visibility,omitempty"`
	ProcessedAt *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	Status      *string    `gorm:"column:status" json:"status,omitempty"`
}

// FundingInvitee links a researcher to a funding record.
type FundingInvitee struct {
	InviteeFields
}

func (FundingInvitee) TableName() string {
	return "funding_invitees"
}

// WorkInvitee links a researcher to a work record.
type WorkInvitee struct {
	InviteeFields
}

func (WorkInvitee) TableName() string {
	return "work_invitees"
}

// PeerReviewInvitee links a researcher to a peer-review record.
type PeerReviewInvitee struct {
	InviteeFields
}

func (PeerReviewInvitee) TableName() string {
	return "peer_review_invitees"
}
