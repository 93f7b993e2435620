package email

import "fmt"

// SendPracticeInvite emails a clinician an invitation to join a practice.
func (c *Client) SendPracticeInvite(to, practiceName, inviterName, acceptLink string) error {
	data := map[string]string{
		"PracticeName": practiceName,
		"InviterName":  inviterName,
		"AcceptLink":   acceptLink,
	}

	return c.SendEmail(
		to,
		fmt.Sprintf("You've been invited to join %s on DictateMED", practiceName),
		TemplatePracticeInvite,
		data,
	)
}

// SendLetterApprovedNotice tells the referring practitioner that a
// consultation letter has been approved and is available for download.
func (c *Client) SendLetterApprovedNotice(to, patientName, specialistName, downloadLink string) error {
	data := map[string]string{
		"PatientName":    patientName,
		"SpecialistName": specialistName,
		"DownloadLink":   downloadLink,
	}

	return c.SendEmail(
		to,
		fmt.Sprintf("Consultation letter for %s is ready", patientName),
		TemplateLetterApproved,
		data,
	)
}
