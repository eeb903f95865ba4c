package identity

import "errors"

// SessionDTO starts or resumes a guest session. Both fields empty means
// "create a fresh identity"; both present means "resume this one".
type SessionDTO struct {
	GuestID     string `json:"guest_id,omitempty"`
	Secret      string `json:"secret,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func (dto SessionDTO) Validate() error {
	if dto.GuestID != "" && dto.Secret == "" {
		return errors.New("secret is required when resuming a guest identity")
	}
	if len(dto.DisplayName) > 100 {
		return errors.New("display_name must be less than 100 characters")
	}
	return nil
}

// SessionResult is what the client stores. Secret is only set when the
// identity was just created; it is never returned again.
type SessionResult struct {
	Guest  *Guest `json:"guest"`
	Secret string `json:"secret,omitempty"`
	Token  string `json:"token"`
}
