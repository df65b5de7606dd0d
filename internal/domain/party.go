package domain

// PartySummary is the public projection of a customer or driver attached
// to ride responses. Registration and credentials live with the external
// auth collaborator; this service only reads the summary columns.
type PartySummary struct {
	ID       string
	FullName string
	Phone    string
}
