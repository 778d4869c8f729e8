package vmp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kallodavid/jobradar/internal/source"
)

// Login posts the portal's login form. The portal answers a failed login
// with a redirect back to the login path, so success is "the final URL left
// that path", not just a 2xx status.
func (s *Site) Login(ctx context.Context) error {
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return &source.AuthError{Reason: "username and password are required"}
	}

	form := map[string]string{
		"login_username": s.cfg.Username,
		"login_jelszo":   s.cfg.Password,
		"login":          "Belépés",
	}
	resp, err := s.client.PostForm(ctx, s.cfg.BaseURL+s.cfg.LoginPath, form)
	if err != nil {
		return &source.AuthError{Reason: fmt.Sprintf("login request failed: %v", err)}
	}
	if strings.Contains(strings.ToLower(resp.FinalURL), strings.ToLower(s.cfg.LoginPath)) {
		return &source.AuthError{Reason: "credentials rejected"}
	}

	s.logger.Info("logged in", zap.String("final_url", resp.FinalURL))
	return nil
}
