package dto

// Data Transfer Objects for the signup and token endpoints

// SignupRequest: username/email pair that receives a confirmation code
type SignupRequest struct {
	Username string `json:"username" binding:"required,max=150,username,notme"`
	Email    string `json:"email" binding:"required,max=254,email"`
}

// SignupResponse echoes the accepted pair
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenRequest: payload for exchanging a confirmation code for a token
type TokenRequest struct {
	Username         string `json:"username" binding:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" binding:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}
