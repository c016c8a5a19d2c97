package dto

import "revot.app/chat/internal/model"

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:    u.ID,
		Email: u.Email,
	}
}
