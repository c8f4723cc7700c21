package fakeapi

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/kinvex/internal/rate"
	"github.com/MrEthical07/kinvex/inventory"
	"github.com/MrEthical07/kinvex/jwt"
	"github.com/MrEthical07/kinvex/password"
	"github.com/MrEthical07/kinvex/permission"
	"github.com/gin-gonic/gin"
)

// BasePath is where the API is mounted.
const BasePath = "/api"

// Options configures a Server.
type Options struct {
	// Secret signs access tokens; at least 32 bytes. A fixed development key is used when empty.
	Secret []byte
	// AccessTTL is the access-token lifetime. Default 15m.
	AccessTTL time.Duration
	// Now is the clock for token issuing and verification. Default time.Now.
	Now func() time.Time
	// SkipSeed starts the server without the default accounts and data.
	SkipSeed bool
	// Throttle, when set, limits failed logins and answers 429 past the budget.
	Throttle *rate.Limiter
}

var devSecret = []byte("kinvex-development-signing-key-0123456789")

func init() {
	// Route listings from debug mode drown test output.
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.TestMode)
	}
}

// Server is the fake API. All methods are safe for concurrent use.
type Server struct {
	engine   *gin.Engine
	tokens   *jwt.Manager
	hasher   *password.Hasher
	throttle *rate.Limiter
	now      func() time.Time

	mu        sync.Mutex
	accessTTL time.Duration
	accounts  map[string]*account
	refresh   map[string]string
	failures  map[string][]int
	delay     time.Duration
	nextID    int64
	products  []*inventory.Product
	suppliers []*inventory.Supplier
	orders    []*inventory.PurchaseOrder
	movements []*inventory.InventoryMovement

	loginCalls   atomic.Int64
	refreshCalls atomic.Int64
	logoutCalls  atomic.Int64
}

type account struct {
	user User
	hash string
}

// User is the principal as the API serializes it.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// New returns a Server with seeded data unless opts.SkipSeed is set.
func New(opts Options) (*Server, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	secret := opts.Secret
	if len(secret) == 0 {
		secret = devSecret
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     opts.AccessTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    secret,
		Issuer:        "kinvex-fakeapi",
	})
	if err != nil {
		return nil, err
	}
	hasher, err := password.New(password.FastConfig())
	if err != nil {
		return nil, err
	}

	s := &Server{
		tokens:    tokens.WithClock(opts.Now),
		hasher:    hasher,
		throttle:  opts.Throttle,
		now:       opts.Now,
		accessTTL: opts.AccessTTL,
		accounts:  make(map[string]*account),
		refresh:   make(map[string]string),
		failures:  make(map[string][]int),
	}
	if !opts.SkipSeed {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}
	s.engine = s.routes()
	return s, nil
}

// Handler returns the HTTP handler serving the API under BasePath.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// AddUser registers an account.
func (s *Server) AddUser(username, pass string, role permission.Role, active bool) error {
	if !role.Valid() {
		return permission.ErrUnknownRole
	}
	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[username]; exists {
		return errors.New("fakeapi: user exists: " + username)
	}
	s.nextID++
	s.accounts[username] = &account{
		user: User{
			ID:        s.nextID,
			Username:  username,
			Email:     username + "@kinvex.local",
			Role:      string(role),
			Active:    active,
			CreatedAt: s.now().UTC(),
		},
		hash: hash,
	}
	return nil
}

// Fail queues error statuses for route, a path relative to BasePath such as
// "/auth/refresh" or "/inventory/products/:id". Each request to the route pops
// one status.
func (s *Server) Fail(route string, statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], statuses...)
}

// SetRefreshDelay makes each refresh wait d before answering.
func (s *Server) SetRefreshDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetAccessTTL changes the lifetime of tokens issued from now on.
func (s *Server) SetAccessTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = d
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.refresh)
}

// LoginCalls returns how many login requests were received.
func (s *Server) LoginCalls() int { return int(s.loginCalls.Load()) }

// RefreshCalls returns how many refresh requests were received.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// LogoutCalls returns how many logout requests were received.
func (s *Server) LogoutCalls() int { return int(s.logoutCalls.Load()) }

// ActiveRefreshTokens returns how many refresh tokens are currently valid.
func (s *Server) ActiveRefreshTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refresh)
}

// IssueAccess signs an access token for username that expires after ttl.
// A non-positive ttl gives an already expired token.
func (s *Server) IssueAccess(username string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	acct, ok := s.accounts[username]
	s.mu.Unlock()
	if !ok {
		return "", errUnknownUser(username)
	}
	token, _, err := s.tokens.CreateAccessTTL(acct.user.ID, acct.user.Username, acct.user.Role, ttl)
	return token, err
}

func errUnknownUser(username string) error {
	return errors.New("fakeapi: unknown user: " + username)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	})

	api := r.Group(BasePath, s.injectFailures)

	auth := api.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refreshToken)
	auth.POST("/logout", s.logout)

	authed := api.Group("", s.authenticate)
	s.inventoryRoutes(authed)
	s.orderRoutes(authed)
	s.reportRoutes(authed)
	return r
}

func (s *Server) injectFailures(c *gin.Context) {
	route := strings.TrimPrefix(c.FullPath(), BasePath)
	s.mu.Lock()
	queue := s.failures[route]
	status := 0
	if len(queue) > 0 {
		status = queue[0]
		s.failures[route] = queue[1:]
	}
	s.mu.Unlock()
	if status != 0 {
		abort(c, status, "INJECTED", http.StatusText(status))
		return
	}
	c.Next()
}

func (s *Server) authenticate(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		abort(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "missing token")
		return
	}
	claims, err := s.tokens.ParseAccess(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		abort(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid or expired token")
		return
	}
	role, err := permission.ParseRole(claims.Role)
	if err != nil {
		abort(c, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "invalid role claim")
		return
	}
	c.Set("uid", claims.UID)
	c.Set("role", role)
	c.Next()
}

func requireRole(required permission.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		held, ok := role.(permission.Role)
		if !ok || !permission.Allows(held, required) {
			abort(c, http.StatusForbidden, "ACCESS_DENIED", "requires role "+string(required))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
