package fakeapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/kinvex/internal"
	"github.com/MrEthical07/kinvex/internal/rate"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) login(c *gin.Context) {
	s.loginCalls.Add(1)
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required")
		return
	}

	if !s.checkThrottle(c, req.Username) {
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok {
		s.loginRejected(c, req.Username)
		return
	}
	if match, err := s.hasher.Verify(req.Password, acct.hash); err != nil || !match {
		s.loginRejected(c, req.Username)
		return
	}
	if s.throttle != nil {
		_ = s.throttle.Reset(c.Request.Context(), req.Username)
	}
	if !acct.user.Active {
		abort(c, http.StatusForbidden, "ACCOUNT_DISABLED", "account disabled")
		return
	}
	s.issue(c, acct.user)
}

// checkThrottle answers 429 or 503 and returns false when the login may not
// proceed.
func (s *Server) checkThrottle(c *gin.Context, username string) bool {
	if s.throttle == nil {
		return true
	}
	err := s.throttle.CheckLogin(c.Request.Context(), username, c.ClientIP())
	switch {
	case err == nil:
		return true
	case errors.Is(err, rate.ErrRateLimited):
		s.tooManyAttempts(c, username)
	default:
		abort(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "login throttle unavailable")
	}
	return false
}

func (s *Server) loginRejected(c *gin.Context, username string) {
	if s.throttle != nil {
		if err := s.throttle.RecordFailure(c.Request.Context(), username, c.ClientIP()); errors.Is(err, rate.ErrRateLimited) {
			s.tooManyAttempts(c, username)
			return
		}
	}
	abort(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid credentials")
}

func (s *Server) tooManyAttempts(c *gin.Context, username string) {
	if d := s.throttle.RetryAfter(c.Request.Context(), username); d > 0 {
		c.Header("Retry-After", strconv.Itoa(int(d.Round(time.Second)/time.Second)))
	}
	abort(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "too many failed login attempts, try again later")
}

func (s *Server) refreshToken(c *gin.Context) {
	s.refreshCalls.Add(1)
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		abort(c, http.StatusBadRequest, "VALIDATION_ERROR", "refreshToken is required")
		return
	}

	s.mu.Lock()
	delay := s.delay
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}

	key := internal.HashToken(req.RefreshToken)
	s.mu.Lock()
	username, ok := s.refresh[key]
	if ok {
		// Rotation: a refresh token is good for one exchange.
		delete(s.refresh, key)
	}
	acct := s.accounts[username]
	s.mu.Unlock()
	if !ok || acct == nil {
		abort(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid refresh token")
		return
	}
	if !acct.user.Active {
		abort(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "account disabled")
		return
	}
	s.issue(c, acct.user)
}

func (s *Server) logout(c *gin.Context) {
	s.logoutCalls.Add(1)
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil && req.RefreshToken != "" {
		s.mu.Lock()
		delete(s.refresh, internal.HashToken(req.RefreshToken))
		s.mu.Unlock()
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) issue(c *gin.Context, user User) {
	pair, err := s.newSession(user)
	if err != nil {
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (s *Server) newSession(user User) (authResponse, error) {
	s.mu.Lock()
	ttl := s.accessTTL
	s.mu.Unlock()

	access, _, err := s.tokens.CreateAccessTTL(user.ID, user.Username, user.Role, ttl)
	if err != nil {
		return authResponse{}, err
	}
	refresh, err := internal.NewRefreshToken()
	if err != nil {
		return authResponse{}, err
	}
	s.mu.Lock()
	s.refresh[internal.HashToken(refresh)] = user.Username
	s.mu.Unlock()

	return authResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
		ExpiresIn:    int64(ttl / time.Second),
	}, nil
}

// IssueSession creates a session for username as a successful login would,
// with an access token that expires after accessTTL. Tests use it to seed a
// token store directly.
func (s *Server) IssueSession(username string, accessTTL time.Duration) (access, refresh string, err error) {
	s.mu.Lock()
	acct, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok {
		return "", "", errUnknownUser(username)
	}
	access, _, err = s.tokens.CreateAccessTTL(acct.user.ID, acct.user.Username, acct.user.Role, accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = internal.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	s.mu.Lock()
	s.refresh[internal.HashToken(refresh)] = username
	s.mu.Unlock()
	return access, refresh, nil
}

// User returns the profile of username.
func (s *Server) User(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[username]
	if !ok {
		return User{}, false
	}
	return acct.user, true
}
