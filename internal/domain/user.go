package domain

// ApprovedUser is a user allowed to talk to the bot. The approved list is
// persisted to approved_users.json on every mutation; admins are configured
// separately and never appear in the file.
type ApprovedUser struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	AddedDate string `json:"added_date"`
	AddedBy   string `json:"added_by"`
}
