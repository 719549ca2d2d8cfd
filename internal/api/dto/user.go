package dto

import "github.com/go-playground/validator/v10"

type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	PanelUserID int64  `json:"panel_user_id" validate:"required,gt=0"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type AuthResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	PanelUserID int64  `json:"panel_user_id"`
	Token       string `json:"token,omitempty"`
}

type MeResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	PanelUserID int64  `json:"panel_user_id"`
	Coins       int64  `json:"coins"`
}

var Validate = validator.New()
