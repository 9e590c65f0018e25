package models

import (
	"strings"
	"time"
)

// User is a locally known researcher or administrator.
type User struct {
	UserID      int        `gorm:"primaryKey;column:user_id" json:"user_id"`
	FirstName   string     `gorm:"column:first_name" json:"first_name"`
	LastName    string     `gorm:"column:last_name" json:"last_name"`
	Email       string     `gorm:"column:email;uniqueIndex" json:"email"`
	EppnOrEmail *string    `gorm:"column:eppn" json:"eppn,omitempty"`
	Orcid       *string    `gorm:"column:orcid" json:"orcid,omitempty"`
	Password    string     `gorm:"column:password" json:"-"`
	IsAdmin     bool       `gorm:"column:is_admin" json:"is_admin"`
	OrgID       int        `gorm:"column:org_id" json:"org_id"`
	ConfirmedAt *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CreateAt    time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt    time.Time  `gorm:"column:update_at;autoUpdateTime" json:"update_at"`

	Org Organisation `gorm:"foreignKey:OrgID" json:"org,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// FullName joins the name parts, falling back to the email address.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// HasLinkedProfile reports whether the user completed registry linkage.
func (u *User) HasLinkedProfile() bool {
	return u.Orcid != nil && *u.Orcid != ""
}

// Organisation is a research organisation on-boarded onto the hub. Its
// address and disambiguation fields are the defaults applied to uploaded
// records that omit them.
type Organisation struct {
	OrgID                     int       `gorm:"primaryKey;column:org_id" json:"org_id"`
	Name                      string    `gorm:"column:name" json:"name"`
	City                      string    `gorm:"column:city" json:"city"`
	Region                    string    `gorm:"column:region" json:"region"`
	Country                   string    `gorm:"column:country" json:"country"`
	DisambiguatedID           string    `gorm:"column:disambiguated_id" json:"disambiguated_id"`
	DisambiguationSource      string    `gorm:"column:disambiguation_source" json:"disambiguation_source"`
	WebhookURL                *string   `gorm:"column:webhook_url" json:"webhook_url,omitempty"`
	WebhooksEnabled           bool      `gorm:"column:webhooks_enabled" json:"webhooks_enabled"`
	EmailNotificationsEnabled bool      `gorm:"column:email_notifications_enabled" json:"email_notifications_enabled"`
	CreateAt                  time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt                  time.Time `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
}

func (Organisation) TableName() string {
	return "organisations"
}

// UserInvitation is an email invitation asking a researcher to link their
// registry profile so the hub can write to it. The (task, email) pair is
// the deduplication key for repeated activations.
type UserInvitation struct {
	InvitationID int        `gorm:"primaryKey;column:invitation_id" json:"invitation_id"`
	InviterID    *int       `gorm:"column:inviter_id" json:"inviter_id,omitempty"`
	InviteeID    *int       `gorm:"column:invitee_id" json:"invitee_id,omitempty"`
	OrgID        int        `gorm:"column:org_id" json:"org_id"`
	TaskID       *int       `gorm:"column:task_id" json:"task_id,omitempty"`
	Email        string     `gorm:"column:email;index" json:"email"`
	FirstName    *string    `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName     *string    `gorm:"column:last_name" json:"last_name,omitempty"`
	Token        string     `gorm:"column:token;uniqueIndex" json:"-"`
	SentAt       time.Time  `gorm:"column:sent_at" json:"sent_at"`
	ExpiresAt    time.Time  `gorm:"column:expires_at" json:"expires_at"`
	ConfirmedAt  *time.Time `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

func (UserInvitation) TableName() string {
	return "user_invitations"
}

// IsPending reports whether the invitation can still be redeemed.
func (i *UserInvitation) IsPending(now time.Time) bool {
	return i.ConfirmedAt == nil && now.Before(i.ExpiresAt)
}

// OrcidToken is a delegated-authorization grant for writing one or more
// profile sections of a linked user on behalf of an organisation.
type OrcidToken struct {
	TokenID      int        `gorm:"primaryKey;column:token_id" json:"token_id"`
	UserID       int        `gorm:"column:user_id;index" json:"user_id"`
	OrgID        int        `gorm:"column:org_id;index" json:"org_id"`
	AccessToken  string     `gorm:"column:access_token" json:"-"`
	RefreshToken *string    `gorm:"column:refresh_token" json:"-"`
	Scopes       string     `gorm:"column:scopes" json:"scopes"`
	ExpiresAt    *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at;autoCreateTime" json:"create_at"`
}

func (OrcidToken) TableName() string {
	return "orcid_tokens"
}

// CoversScope checks whether the grant includes the requested scope.
func (t *OrcidToken) CoversScope(scope string) bool {
	for _, s := range strings.Split(t.Scopes, ",") {
		if strings.TrimSpace(s) == scope {
			return true
		}
	}
	return false
}

// IsCurrent reports whether the grant has not expired.
func (t *OrcidToken) IsCurrent(now time.Time) bool {
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}
