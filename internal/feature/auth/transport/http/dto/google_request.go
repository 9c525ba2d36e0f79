package dto

// GoogleCredentialReq is the ID token posted by the Google sign-in button.
type GoogleCredentialReq struct {
	Credential string `json:"credential" binding:"required"`
}
