package services

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"profile-hub-api/config"
	"profile-hub-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// invitationTTL is how long an invitation token stays redeemable.
// Overridable via INVITATION_TTL_DAYS.
func invitationTTL() time.Duration {
	days, _ := strconv.Atoi(os.Getenv("INVITATION_TTL_DAYS"))
	if days <= 0 {
		days = 14
	}
	return time.Duration(days) * 24 * time.Hour
}

// InvitationService sends profile-linking invitations to researchers named
// in batch records who have no linked profile yet.
type InvitationService struct {
	db *gorm.DB
}

func NewInvitationService(db *gorm.DB) *InvitationService {
	if db == nil {
		db = config.DB
	}
	return &InvitationService{db: db}
}

// Invite sends an invitation for the given email in the context of a task,
// unless an unexpired unconfirmed one already exists for the same task and
// address. It returns the invitation on file, sent now or earlier.
//
// A delivery failure leaves no invitation row, so the next activation
// retries the send.
func (s *InvitationService) Invite(org *models.Organisation, task *models.Task, email, firstName, lastName string, inviterID *int) (*models.UserInvitation, error) {
	now := time.Now().UTC()

	var existing models.UserInvitation
	q := s.db.Where("org_id = ? AND email = ? AND confirmed_at IS NULL AND expires_at > ?",
		org.OrgID, email, now)
	if task != nil {
		q = q.Where("task_id = ?", task.TaskID)
	} else {
		q = q.Where("task_id IS NULL")
	}
	if err := q.First(&existing).Error; err == nil {
		return &existing, nil
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	inv := &models.UserInvitation{
		InviterID: inviterID,
		OrgID:     org.OrgID,
		Email:     email,
		FirstName: optStr(firstName),
		LastName:  optStr(lastName),
		Token:     uuid.NewString(),
		SentAt:    now,
		ExpiresAt: now.Add(invitationTTL()),
	}
	if task != nil {
		inv.TaskID = &task.TaskID
	}

	if err := s.send(org, inv); err != nil {
		log.Printf("Failed to send invitation to %s for org %d: %v", email, org.OrgID, err)
		return nil, err
	}
	if err := s.db.Create(inv).Error; err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *InvitationService) send(org *models.Organisation, inv *models.UserInvitation) error {
	base := os.Getenv("APP_BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	link := fmt.Sprintf("%s/invitations/confirm?token=%s", base, inv.Token)

	subject := fmt.Sprintf("%s wants to add records to your research profile", org.Name)
	body := fmt.Sprintf(`
		<p>Hello,</p>
		<p>%s would like permission to update your research profile on your behalf.</p>
		<p>Follow <a href="%s">this link</a> to link your profile and grant access.
		The link expires on %s.</p>
		<p>If you did not expect this invitation you can ignore this message.</p>`,
		org.Name, link, inv.ExpiresAt.Format("2 January 2006"))

	return config.SendMail([]string{inv.Email}, subject, body)
}

// Confirm redeems an invitation token, binding it to the user who followed
// the link.
func (s *InvitationService) Confirm(token string, userID int) (*models.UserInvitation, error) {
	var inv models.UserInvitation
	if err := s.db.First(&inv, "token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &FieldValidationError{Message: "Unknown or expired invitation token"}
		}
		return nil, err
	}
	now := time.Now().UTC()
	if !inv.IsPending(now) {
		return nil, &FieldValidationError{Message: "Unknown or expired invitation token"}
	}
	inv.ConfirmedAt = &now
	inv.InviteeID = &userID
	if err := s.db.Model(&inv).
		Updates(map[string]interface{}{"confirmed_at": now, "invitee_id": userID}).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// SendTaskExpiryReminder warns the task creator that an incomplete task is
// about to be reclaimed.
func (s *InvitationService) SendTaskExpiryReminder(task *models.Task) error {
	var creator models.User
	if err := s.db.First(&creator, "user_id = ?", task.CreatedBy).Error; err != nil {
		return err
	}
	subject := fmt.Sprintf("Batch task %q is about to expire", task.DisplayName())
	expires := "soon"
	if task.ExpiresAt != nil {
		expires = task.ExpiresAt.Format("2 January 2006")
	}
	body := fmt.Sprintf(`
		<p>Hello %s,</p>
		<p>Your batch task %q still has unprocessed records and will be removed on %s.</p>
		<p>Activate or reset its records if you still need it.</p>`,
		creator.FullName(), task.DisplayName(), expires)
	return config.SendMail([]string{creator.Email}, subject, body)
}
