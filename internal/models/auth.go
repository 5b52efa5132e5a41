package models

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

type SessionResponse struct {
	State     string  `json:"state"`
	User      *User   `json:"user,omitempty"`
	Subject   string  `json:"subject,omitempty"`
	ExpiresAt *string `json:"expires_at,omitempty"`
}
