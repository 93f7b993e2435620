package email

// PreviewData contains sample template data for local preview and testing,
// keyed by template name then template variable.
var PreviewData = map[string]map[string]string{
	"practice_invite": {
		"PracticeName": "Harbour Cardiology",
		"InviterName":  "Dr. Priya Nair",
		"AcceptLink":   "https://app.dictatemed.com/invites/example",
	},
	"letter_approved": {
		"PatientName":    "Jane Citizen",
		"SpecialistName": "Dr. Priya Nair",
		"DownloadLink":   "https://app.dictatemed.com/letters/example",
	},
}
