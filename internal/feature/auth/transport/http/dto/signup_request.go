// Package dto defines data transfer objects for the auth feature's HTTP transport layer.
package dto

// SignupReq is the request body for POST /auth/register.
type SignupReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"max=100"`
}
