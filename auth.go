package pageuser

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const resetCodeTTL = time.Hour

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotRequest struct {
	Email string `json:"email"`
}

type resetRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

func (a *App) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "name and email are required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "invalid email address")
	}
	if len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := a.Store.CreateUser(req.Name, req.Email, string(hash))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return echo.NewHTTPError(http.StatusConflict, "email already registered")
		}
		return err
	}
	if err := setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := a.Store.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.loginLimiter.Record(ip)
			return echo.NewHTTPError(http.StatusUnauthorized, "incorrect email or password")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Hashed), []byte(req.Password)) != nil {
		a.loginLimiter.Record(ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "incorrect email or password")
	}
	if err := setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"detail": "logged out"})
}

func (a *App) handleMe(c echo.Context) error {
	user, err := a.Store.GetUserByID(userID(c))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// handleForgotPassword issues a short-lived reset code. The response is the
// same whether or not the email is registered, so the endpoint cannot be
// used to probe for accounts.
func (a *App) handleForgotPassword(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many attempts, try again later")
	}
	var req forgotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	generic := map[string]string{"detail": "if the address is registered, a reset code has been sent"}

	user, err := a.Store.GetUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			a.loginLimiter.Record(ip)
			return c.JSON(http.StatusOK, generic)
		}
		return err
	}

	code, err := resetCode()
	if err != nil {
		return err
	}
	if err := a.Store.CreateResetCode(user.ID, code, time.Now().Add(resetCodeTTL)); err != nil {
		return err
	}
	if a.Mailer.configured() {
		body := fmt.Sprintf("Your password reset code is: %s\n\nIt expires in one hour.", code)
		if err := a.Mailer.Send(user.Email, "Password reset code", body); err != nil {
			a.logger.Error("reset mail failed", "error", err)
		}
	} else {
		a.logger.Info("reset code issued (mailer not configured)", "email", user.Email)
	}
	return c.JSON(http.StatusOK, generic)
}

func (a *App) handleResetPassword(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.NewPassword) < 8 {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "password must be at least 8 characters")
	}
	user, err := a.Store.ConsumeResetCode(req.Email, strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset code")
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.Store.UpdateUserPassword(user.ID, string(hash)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"detail": "password updated"})
}

// resetCode returns a 6-digit numeric code from crypto/rand.
func resetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
