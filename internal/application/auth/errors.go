package auth

import "helpmate-backend/internal/domain"

var (
	ErrEmailPasswordRequired = domain.NewError(domain.ErrInvalidInput, "Email and password are required")
	ErrInvalidEmail          = domain.NewError(domain.ErrAuthenticationRequired, "Invalid Email")
	ErrIncorrectPassword     = domain.NewError(domain.ErrAuthenticationRequired, "Incorrect Password")
	ErrNotAuthenticated      = domain.NewError(domain.ErrAuthenticationRequired, "Not authenticated")
)
