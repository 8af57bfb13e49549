package entity

// Operator is the authenticated caller of the monitoring API, usually a
// fleet dispatcher or the in-cab device itself.
type Operator struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Fleet string `json:"fleet"`
}
