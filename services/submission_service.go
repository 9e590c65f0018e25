package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"profile-hub-api/config"
	"profile-hub-api/models"

	"gorm.io/gorm"
)

// Authorization scopes required per section family.
const (
	ScopeActivitiesUpdate = "/activities/update"
	ScopePersonUpdate     = "/person/update"
)

// Webhook event names.
const (
	EventRecordProcessed = "RECORD_PROCESSED"
	EventRecordErrored   = "RECORD_ERRORED"
)

const (
	statusProcessedLine  = "The record was successfully processed."
	statusDeletedLine    = "The record was successfully deleted."
	statusInvitationLine = "The invitation has been sent to the user."
)

// SubmissionService pushes the active records of a task to the registry.
// Each record (or invitee, for multi-party kinds) reaches a terminal state
// exactly once; records whose researcher has not linked a profile yet get
// an invitation and stay pending for the next run.
type SubmissionService struct {
	db          *gorm.DB
	client      RegistryClient
	invitations *InvitationService
	webhooks    *WebhookService
	tasks       *TaskService
}

func NewSubmissionService(db *gorm.DB, client RegistryClient, webhooks *WebhookService) *SubmissionService {
	if db == nil {
		db = config.DB
	}
	if client == nil {
		client = NewHTTPRegistryClient()
	}
	if webhooks == nil {
		webhooks = NewWebhookService(nil)
	}
	return &SubmissionService{
		db:          db,
		client:      client,
		invitations: NewInvitationService(db),
		webhooks:    webhooks,
		tasks:       NewTaskService(db),
	}
}

// ProcessTask submits every active unprocessed record of the task. A
// failure on one record never stops the rest of the batch.
func (s *SubmissionService) ProcessTask(ctx context.Context, task *models.Task) error {
	var org models.Organisation
	if err := s.db.First(&org, "org_id = ?", task.OrgID).Error; err != nil {
		return err
	}

	var err error
	switch task.TaskType {
	case models.TaskTypeAffiliation:
		err = s.processAffiliations(ctx, task, &org)
	case models.TaskTypeFunding:
		err = s.processFundings(ctx, task, &org)
	case models.TaskTypeWork:
		err = s.processWorks(ctx, task, &org)
	case models.TaskTypePeerReview:
		err = s.processPeerReviews(ctx, task, &org)
	case models.TaskTypeProperty:
		err = s.processProperties(ctx, task, &org)
	case models.TaskTypeOtherID:
		err = s.processOtherIDs(ctx, task, &org)
	default:
		return ErrWrongTaskType
	}
	if err != nil {
		return err
	}
	return s.tasks.MarkCompletedIfDone(task)
}

// resolveToken finds the linked user and a current grant for the scope, or
// (nil, nil, nil) when the researcher has not linked a profile yet.
func (s *SubmissionService) resolveToken(orgID int, email, orcid *string, scope string) (*models.User, *models.OrcidToken, error) {
	var user models.User
	q := s.db.Where("org_id = ?", orgID)
	switch {
	case orcid != nil && *orcid != "":
		q = q.Where("orcid = ?", *orcid)
	case email != nil && *email != "":
		q = q.Where("email = ?", *email)
	default:
		return nil, nil, nil
	}
	if err := q.First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if !user.HasLinkedProfile() {
		return &user, nil, nil
	}

	var tokens []models.OrcidToken
	if err := s.db.Where("user_id = ? AND org_id = ?", user.UserID, orgID).
		Order("create_at DESC").Find(&tokens).Error; err != nil {
		return nil, nil, err
	}
	now := time.Now().UTC()
	for i := range tokens {
		if tokens[i].IsCurrent(now) && tokens[i].CoversScope(scope) {
			return &user, &tokens[i], nil
		}
	}
	return &user, nil, nil
}

// submitOutcome applies one registry call outcome to a status holder.
// Registry rejections and invalid records are terminal; transport errors
// leave the record pending for a retry.
func submitOutcome(rs *models.RecordStatusFields, err error, successLine string) (terminal bool, failed bool) {
	now := time.Now().UTC()
	if err == nil {
		rs.ProcessedAt = &now
		rs.AddStatusLine(successLine)
		return true, false
	}
	switch err.(type) {
	case *OrcidError, *FieldValidationError:
		rs.ProcessedAt = &now
		rs.AddStatusLine(fmt.Sprintf("Error: %s", err.Error()))
		return true, true
	}
	rs.AddStatusLine(fmt.Sprintf("Error: %s", err.Error()))
	return false, true
}

// guard runs fn containing any panic as a logged error so one record
// cannot take down the batch.
func guard(label string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic while processing %s: %v", label, r)
		}
	}()
	fn()
}

func (s *SubmissionService) processAffiliations(ctx context.Context, task *models.Task, org *models.Organisation) error {
	records, err := s.tasks.ListAffiliationRecords(task.TaskID, RecordFilter{ActiveOnly: true, PendingOnly: true})
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		guard(fmt.Sprintf("affiliation record %d", rec.RecordID), func() {
			s.submitAffiliation(ctx, task, org, rec)
		})
	}
	return nil
}

func (s *SubmissionService) submitAffiliation(ctx context.Context, task *models.Task, org *models.Organisation, rec *models.AffiliationRecord) {
	user, token, err := s.resolveToken(org.OrgID, rec.Email, rec.Orcid, ScopeActivitiesUpdate)
	if err != nil {
		log.Printf("Failed to resolve user for affiliation record %d: %v", rec.RecordID, err)
		return
	}
	if token == nil {
		s.inviteForRecord(task, org, &rec.RecordStatusFields, rec.Email, rec.FirstName, rec.LastName)
		s.saveRecordStatus(rec, map[string]interface{}{"status": rec.Status})
		return
	}
	orcid := *user.Orcid
	section := affiliationSection(deref(rec.AffiliationType))

	var callErr error
	successLine := statusProcessedLine
	if rec.DeleteRecord {
		successLine = statusDeletedLine
		if rec.PutCode == nil {
			callErr = &FieldValidationError{
				Message: "Missing put-code. Cannot delete a record without put-code."}
		} else {
			callErr = s.client.DeleteSection(ctx, orcid, token.AccessToken, section, *rec.PutCode)
		}
	} else if rec.PutCode != nil {
		callErr = s.client.UpdateSection(ctx, orcid, token.AccessToken, section, *rec.PutCode, affiliationPayload(rec, org))
	} else {
		var putCode int
		putCode, callErr = s.client.CreateSection(ctx, orcid, token.AccessToken, section, affiliationPayload(rec, org))
		if callErr == nil {
			rec.PutCode = &putCode
		}
	}

	terminal, failed := submitOutcome(&rec.RecordStatusFields, callErr, successLine)
	rec.UserID = &user.UserID
	s.saveRecordStatus(rec, map[string]interface{}{
		"processed_at": rec.ProcessedAt,
		"status":       rec.Status,
		"put_code":     rec.PutCode,
		"user_id":      rec.UserID,
	})
	if terminal {
		event := EventRecordProcessed
		if failed {
			event = EventRecordErrored
		}
		s.webhooks.NotifyRecordEvent(org, task, rec.RecordID, deref(rec.Email), orcid, event)
	}
}

func (s *SubmissionService) saveRecordStatus(model interface{}, updates map[string]interface{}) {
	if err := s.db.Model(model).Updates(updates).Error; err != nil {
		log.Printf("Failed to persist record outcome: %v", err)
	}
}

// inviteForRecord sends a linking invitation for a record whose researcher
// has no usable grant, and notes it on the status trail.
func (s *SubmissionService) inviteForRecord(task *models.Task, org *models.Organisation, rs *models.RecordStatusFields, email, firstName, lastName *string) {
	if email == nil || *email == "" {
		rs.AddStatusLine("Error: no email address to send the invitation to.")
		return
	}
	if _, err := s.invitations.Invite(org, task, *email, deref(firstName), deref(lastName), nil); err != nil {
		rs.AddStatusLine(fmt.Sprintf("Error: failed to send the invitation: %s", err))
		return
	}
	rs.AddStatusLine(statusInvitationLine)
}

func (s *SubmissionService) processFundings(ctx context.Context, task *models.Task, org *models.Organisation) error {
	records, err := s.tasks.ListFundingRecords(task.TaskID, RecordFilter{ActiveOnly: true, PendingOnly: true})
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		guard(fmt.Sprintf("funding record %d", rec.RecordID), func() {
			payload := fundingPayload(rec, org)
			done := s.submitForInvitees(ctx, task, org, rec.RecordID, SectionFunding, payload, toInviteeRefs(rec.Invitees))
			s.finishCompositeRecord(task, org, &rec.RecordStatusFields, rec, rec.RecordID, done)
		})
	}
	return nil
}

func (s *SubmissionService) processWorks(ctx context.Context, task *models.Task, org *models.Organisation) error {
	records, err := s.tasks.ListWorkRecords(task.TaskID, RecordFilter{ActiveOnly: true, PendingOnly: true})
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		guard(fmt.Sprintf("work record %d", rec.RecordID), func() {
			payload := workPayload(rec)
			done := s.submitForInvitees(ctx, task, org, rec.RecordID, SectionWork, payload, toInviteeRefsW(rec.Invitees))
			s.finishCompositeRecord(task, org, &rec.RecordStatusFields, rec, rec.RecordID, done)
		})
	}
	return nil
}

func (s *SubmissionService) processPeerReviews(ctx context.Context, task *models.Task, org *models.Organisation) error {
	records, err := s.tasks.ListPeerReviewRecords(task.TaskID, RecordFilter{ActiveOnly: true, PendingOnly: true})
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		guard(fmt.Sprintf("peer review record %d", rec.RecordID), func() {
			payload := peerReviewPayload(rec, org)
			done := s.submitForInvitees(ctx, task, org, rec.RecordID, SectionPeerReview, payload, toInviteeRefsPR(rec.Invitees))
			s.finishCompositeRecord(task, org, &rec.RecordStatusFields, rec, rec.RecordID, done)
		})
	}
	return nil
}

// inviteeRef lets one invitee loop serve all three composite kinds.
type inviteeRef struct {
	fields *models.InviteeFields
	model  interface{}
}

func toInviteeRefs(invs []models.FundingInvitee) []inviteeRef {
	out := make([]inviteeRef, len(invs))
	for i := range invs {
		out[i] = inviteeRef{fields: &invs[i].InviteeFields, model: &invs[i]}
	}
	return out
}

func toInviteeRefsW(invs []models.WorkInvitee) []inviteeRef {
	out := make([]inviteeRef, len(invs))
	for i := range invs {
		out[i] = inviteeRef{fields: &invs[i].InviteeFields, model: &invs[i]}
	}
	return out
}

func toInviteeRefsPR(invs []models.PeerReviewInvitee) []inviteeRef {
	out := make([]inviteeRef, len(invs))
	for i := range invs {
		out[i] = inviteeRef{fields: &invs[i].InviteeFields, model: &invs[i]}
	}
	return out
}

// submitForInvitees writes the section once per invitee and reports whether
// every invitee reached a terminal state.
func (s *SubmissionService) submitForInvitees(ctx context.Context, task *models.Task, org *models.Organisation, recordID int, section string, payload map[string]interface{}, invitees []inviteeRef) bool {
	allDone := true
	for _, inv := range invitees {
		f := inv.fields
		if f.ProcessedAt != nil {
			continue
		}

		user, token, err := s.resolveToken(org.OrgID, f.Email, f.Orcid, ScopeActivitiesUpdate)
		if err != nil {
			log.Printf("Failed to resolve invitee %d of record %d: %v", f.InviteeID, recordID, err)
			allDone = false
			continue
		}
		if token == nil {
			allDone = false
			var line string
			if f.Email == nil || *f.Email == "" {
				line = invStatusLine("Error: no email address to send the invitation to.")
			} else if _, err := s.invitations.Invite(org, task, *f.Email, deref(f.FirstName), deref(f.LastName), nil); err != nil {
				line = invStatusLine(fmt.Sprintf("Error: failed to send the invitation: %s", err))
			} else {
				line = invStatusLine(statusInvitationLine)
			}
			f.Status = appendLine(f.Status, line)
			s.saveRecordStatus(inv.model, map[string]interface{}{"status": f.Status})
			continue
		}

		orcid := *user.Orcid
		var callErr error
		if f.PutCode != nil {
			callErr = s.client.UpdateSection(ctx, orcid, token.AccessToken, section, *f.PutCode, payload)
		} else {
			var putCode int
			putCode, callErr = s.client.CreateSection(ctx, orcid, token.AccessToken, section, payload)
			if callErr == nil {
				f.PutCode = &putCode
			}
		}

		now := time.Now().UTC()
		var event string
		switch {
		case callErr == nil:
			f.ProcessedAt = &now
			f.Status = appendLine(f.Status, invStatusLine(statusProcessedLine))
			event = EventRecordProcessed
		default:
			if _, ok := callErr.(*OrcidError); ok {
				f.ProcessedAt = &now
			} else {
				allDone = false
			}
			f.Status = appendLine(f.Status, invStatusLine(fmt.Sprintf("Error: %s", callErr)))
			event = EventRecordErrored
		}
		s.saveRecordStatus(inv.model, map[string]interface{}{
			"processed_at": f.ProcessedAt,
			"status":       f.Status,
			"put_code":     f.PutCode,
		})
		if f.ProcessedAt != nil {
			s.webhooks.NotifyRecordEvent(org, task, recordID, deref(f.Email), orcid, event)
		}
	}
	return allDone
}

// finishCompositeRecord stamps the parent record once all its invitees are
// terminal.
func (s *SubmissionService) finishCompositeRecord(task *models.Task, org *models.Organisation, rs *models.RecordStatusFields, model interface{}, recordID int, allDone bool) {
	if !allDone {
		return
	}
	now := time.Now().UTC()
	rs.ProcessedAt = &now
	rs.AddStatusLine(statusProcessedLine)
	s.saveRecordStatus(model, map[string]interface{}{
		"processed_at": rs.ProcessedAt,
		"status":       rs.Status,
	})
}

func (s *SubmissionService) processProperties(ctx context.Context, task *models.Task, org *models.Organisation) error {
	records, err := s.tasks.ListPropertyRecords(task.TaskID, RecordFilter{ActiveOnly: true, PendingOnly: true})
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		guard(fmt.Sprintf("property record %d", rec.RecordID), func() {
			s.submitProperty(ctx, task, org, rec)
		})
	}
	return nil
}

func (s *SubmissionService) submitProperty(ctx context.Context, task *models.Task, org *models.Organisation, rec *models.PropertyRecord) {
	user, token, err := s.resolveToken(org.OrgID, rec.Email, rec.Orcid, ScopePersonUpdate)
	if err != nil {
		log.Printf("Failed to resolve user for property record %d: %v", rec.RecordID, err)
		return
	}
	if token == nil {
		s.inviteForRecord(task, org, &rec.RecordStatusFields, rec.Email, rec.FirstName, rec.LastName)
		s.saveRecordStatus(rec, map[string]interface{}{"status": rec.Status})
		return
	}
	orcid := *user.Orcid
	section := propertySection(rec.Type)

	var callErr error
	if rec.PutCode != nil {
		callErr = s.client.UpdateSection(ctx, orcid, token.AccessToken, section, *rec.PutCode, propertyPayload(rec))
	} else {
		var putCode int
		putCode, callErr = s.client.CreateSection(ctx, orcid, token.AccessToken, section, propertyPayload(rec))
		if callErr == nil {
			rec.PutCode = &putCode
		}
	}

	terminal, failed := submitOutcome(&rec.RecordStatusFields, callErr, statusProcessedLine)
	rec.UserID = &user.UserID
	s.saveRecordStatus(rec, map[string]interface{}{
		"processed_at": rec.ProcessedAt,
		"status":       rec.Status,
		"put_code":     rec.PutCode,
		"user_id":      rec.UserID,
	})
	if terminal {
		event := EventRecordProcessed
		if failed {
			event = EventRecordErrored
		}
		s.webhooks.NotifyRecordEvent(org, task, rec.RecordID, deref(rec.Email), orcid, event)
	}
}

func (s *SubmissionService) processOtherIDs(ctx context.Context, task *models.Task, org *models.Organisation) error {
	records, err := s.tasks.ListOtherIDRecords(task.TaskID, RecordFilter{ActiveOnly: true, PendingOnly: true})
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		guard(fmt.Sprintf("other id record %d", rec.RecordID), func() {
			s.submitOtherID(ctx, task, org, rec)
		})
	}
	return nil
}

func (s *SubmissionService) submitOtherID(ctx context.Context, task *models.Task, org *models.Organisation, rec *models.OtherIDRecord) {
	user, token, err := s.resolveToken(org.OrgID, rec.Email, rec.Orcid, ScopePersonUpdate)
	if err != nil {
		log.Printf("Failed to resolve user for other id record %d: %v", rec.RecordID, err)
		return
	}
	if token == nil {
		s.inviteForRecord(task, org, &rec.RecordStatusFields, rec.Email, rec.FirstName, rec.LastName)
		s.saveRecordStatus(rec, map[string]interface{}{"status": rec.Status})
		return
	}
	orcid := *user.Orcid

	var callErr error
	if rec.PutCode != nil {
		callErr = s.client.UpdateSection(ctx, orcid, token.AccessToken, SectionOtherID, *rec.PutCode, otherIDPayload(rec))
	} else {
		var putCode int
		putCode, callErr = s.client.CreateSection(ctx, orcid, token.AccessToken, SectionOtherID, otherIDPayload(rec))
		if callErr == nil {
			rec.PutCode = &putCode
		}
	}

	terminal, failed := submitOutcome(&rec.RecordStatusFields, callErr, statusProcessedLine)
	rec.UserID = &user.UserID
	s.saveRecordStatus(rec, map[string]interface{}{
		"processed_at": rec.ProcessedAt,
		"status":       rec.Status,
		"put_code":     rec.PutCode,
		"user_id":      rec.UserID,
	})
	if terminal {
		event := EventRecordProcessed
		if failed {
			event = EventRecordErrored
		}
		s.webhooks.NotifyRecordEvent(org, task, rec.RecordID, deref(rec.Email), orcid, event)
	}
}

// invStatusLine prefixes a status line with the timestamp, matching the
// record status trail format.
func invStatusLine(line string) string {
	return time.Now().UTC().Format("2006-01-02 15:04:05") + ": " + line
}

// appendLine joins status lines with newlines.
func appendLine(status *string, line string) *string {
	if status == nil || *status == "" {
		return &line
	}
	joined := *status + "\n" + line
	return &joined
}
