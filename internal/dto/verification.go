package dto

type SendCodeRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

type VerifyCodeRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Code       string `json:"code" binding:"required,numeric"`
}

type ResendCodeRequest struct {
	Field string `json:"field" binding:"required,oneof=phone email"`
}

type ForgotPasswordRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

type ResetPasswordRequest struct {
	Identifier      string `json:"identifier" binding:"required"`
	Code            string `json:"code" binding:"required,numeric"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}
