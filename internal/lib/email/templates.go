package email

// Template names an HTML email template under templates/emails/.
type Template string

const (
	// TemplatePracticeInvite invites a clinician to join a practice.
	TemplatePracticeInvite Template = "practice_invite"

	// TemplateLetterApproved notifies the referrer that a letter is final.
	TemplateLetterApproved Template = "letter_approved"
)
