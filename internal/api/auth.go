package api

import (
	"context"
	"net/http"
)

const (
	loginPath          = "/auth/teacher/login"
	logoutPath         = "/auth/logout"
	profilePath        = "/auth/profile"
	forgotPasswordPath = "/auth/forgot-password"
	resetPasswordPath  = "/auth/reset-password"
)

// Credentials are the teacher's login form fields.
type Credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// ResetPasswordRequest completes a password reset started with
// ForgotPassword.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// AuthAPI wraps the /auth endpoints.
type AuthAPI struct {
	client *Client
}

// Auth returns the /auth endpoint wrapper
func (c *Client) Auth() *AuthAPI {
	return &AuthAPI{client: c}
}

// Login posts credentials to the teacher login endpoint. A 401 here is
// never recovered by refresh.
func (a *AuthAPI) Login(ctx context.Context, creds Credentials) (*Response, error) {
	return a.client.Request(ctx, loginPath, &RequestOptions{
		Method: http.MethodPost,
		Body:   creds,
	})
}

// Logout invalidates the current session server-side.
func (a *AuthAPI) Logout(ctx context.Context) error {
	_, err := a.client.Request(ctx, logoutPath, &RequestOptions{Method: http.MethodPost})
	return err
}

// Profile fetches the authenticated teacher's profile.
func (a *AuthAPI) Profile(ctx context.Context) (*Response, error) {
	return a.client.Request(ctx, profilePath, nil)
}

// ForgotPassword asks the backend to mail a reset link.
func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (*Response, error) {
	return a.client.Request(ctx, forgotPasswordPath, &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"email": email},
	})
}

// ResetPassword sets a new password using a reset token.
func (a *AuthAPI) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*Response, error) {
	return a.client.Request(ctx, resetPasswordPath, &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
	})
}
