package dto

// LoginReq is the request body for POST /auth/login.
// Email format and password length are checked by the usecase so that every rejection
// carries the same message.
type LoginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}
