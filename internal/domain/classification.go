package domain

type ClassificationType string

const (
	ClassificationNewComplaint ClassificationType = "newComplaint"
	ClassificationStatusQuery  ClassificationType = "statusQuery"
	ClassificationFAQ          ClassificationType = "faq"
)

// Classification is the structured result produced by the external text
// classifier. Only the newComplaint shape becomes a ticket.
type Classification struct {
	Type         ClassificationType `json:"type"`
	Department   string             `json:"department,omitempty"`
	RefinedText  string             `json:"refinedText,omitempty"`
	Priority     string             `json:"priority,omitempty"`
	LocationName string             `json:"locationName,omitempty"`
	ComplaintID  string             `json:"complaintId,omitempty"`
	Answer       string             `json:"answer,omitempty"`
}
