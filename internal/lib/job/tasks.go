package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names. Asynq routes on these strings.
const (
	TaskReferralFullExtract  = "referral:full_extract"
	TaskPracticeInvite       = "email:practice_invite"
	TaskLetterApprovedNotice = "email:letter_approved"
)

// FullExtractPayload identifies the document to run deep extraction on.
type FullExtractPayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// NewFullExtractTask builds the deep-extraction task for a referral
// document. The fast inline extraction has already run; this pass re-reads
// the original file and replaces the text with a higher-fidelity version.
func NewFullExtractTask(documentID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(FullExtractPayload{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskReferralFullExtract,
		payload,
		asynq.MaxRetry(5),
		asynq.Queue("default"),
		asynq.Timeout(5*time.Minute),
	), nil
}

// PracticeInvitePayload is the data for a practice invitation email.
type PracticeInvitePayload struct {
	To           string `json:"to"`
	PracticeName string `json:"practice_name"`
	InviterName  string `json:"inviter_name"`
	AcceptLink   string `json:"accept_link"`
}

// NewPracticeInviteTask builds a practice invitation email task.
func NewPracticeInviteTask(p PracticeInvitePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskPracticeInvite,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("critical"),
		asynq.Timeout(30*time.Second),
	), nil
}

// LetterApprovedPayload is the data for a letter-approved notification.
type LetterApprovedPayload struct {
	To             string `json:"to"`
	PatientName    string `json:"patient_name"`
	SpecialistName string `json:"specialist_name"`
	DownloadLink   string `json:"download_link"`
}

// NewLetterApprovedTask builds a letter-approved notification task.
func NewLetterApprovedTask(p LetterApprovedPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskLetterApprovedNotice,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("low"),
		asynq.Timeout(30*time.Second),
	), nil
}
