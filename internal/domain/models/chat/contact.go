package chat

// Contact is one name/email pair from the user's address book. A person with
// several email addresses appears once per address.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
}
