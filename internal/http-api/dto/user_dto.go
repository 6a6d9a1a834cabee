package dto

import (
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/service"
)

// CreateUserRequest for admin-created users
type CreateUserRequest struct {
	Username  string `json:"username" binding:"required,max=150,username,notme"`
	Email     string `json:"email" binding:"required,max=254,email"`
	Role      string `json:"role" binding:"omitempty,oneof=user moderator admin"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
	Bio       string `json:"bio"`
}

func (r CreateUserRequest) ToInput() service.UserInput {
	return service.UserInput{
		Username:  r.Username,
		Email:     r.Email,
		Role:      r.Role,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
	}
}

// UpdateUserRequest is a partial update; absent fields stay unchanged
type UpdateUserRequest struct {
	Username  *string `json:"username" binding:"omitempty,max=150,username,notme"`
	Email     *string `json:"email" binding:"omitempty,max=254,email"`
	Role      *string `json:"role" binding:"omitempty,oneof=user moderator admin"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	Bio       *string `json:"bio"`
}

func (r UpdateUserRequest) ToPatch() service.UserPatch {
	return service.UserPatch{
		Username:  r.Username,
		Email:     r.Email,
		Role:      r.Role,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Bio:       r.Bio,
	}
}

type UserResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Bio       string `json:"bio"`
	Role      string `json:"role"`
}

// FromModelToUserResponse converts a User model to UserResponse DTO
func FromModelToUserResponse(u *models.User) UserResponse {
	return UserResponse{
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Bio:       u.Bio,
		Role:      u.Role,
	}
}
