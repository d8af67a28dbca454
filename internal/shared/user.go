package shared

// UserSummary is the populated created-by/approved-by shape embedded in
// document responses.
type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
