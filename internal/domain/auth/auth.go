package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin = "admin"

	CookieName = "auth_token"
	DefaultTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMFARequired        = errors.New("mfa code required")
	ErrMFAInvalid         = errors.New("invalid mfa code")
)

type Claims struct {
	UserID    string `json:"uid"`
	RoleName  string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID    string
	RoleName  string
	SessionID string
	ExpiresAt time.Time
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type Options struct {
	Secret       string
	Password     string
	PasswordHash string
	TOTPSecret   string
	TTL          time.Duration
}

// Authenticator checks the single admin password (and TOTP code when a
// secret is configured) and issues session tokens.
type Authenticator struct {
	secret       string
	passwordHash string
	totpSecret   string
	ttl          time.Duration
}

// NewAuthenticator hashes a plain admin password once at startup. A
// configured hash takes precedence over the plain password.
func NewAuthenticator(opts Options) (*Authenticator, error) {
	if strings.TrimSpace(opts.Secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	hash := strings.TrimSpace(opts.PasswordHash)
	if hash == "" {
		if opts.Password == "" {
			return nil, errors.New("admin password or password hash is required")
		}
		var err error
		hash, err = HashPassword(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Authenticator{
		secret:       opts.Secret,
		passwordHash: hash,
		totpSecret:   strings.TrimSpace(opts.TOTPSecret),
		ttl:          ttl,
	}, nil
}

func (a *Authenticator) Secret() string {
	return a.secret
}

func (a *Authenticator) TTL() time.Duration {
	return a.ttl
}

func (a *Authenticator) MFAEnabled() bool {
	return a.totpSecret != ""
}

// Login returns a signed token and its expiry.
func (a *Authenticator) Login(password, mfaCode string) (string, time.Time, error) {
	if err := CheckPassword(a.passwordHash, password); err != nil {
		return "", time.Time{}, ErrInvalidCredentials
	}
	if a.MFAEnabled() {
		code := strings.TrimSpace(mfaCode)
		if code == "" {
			return "", time.Time{}, ErrMFARequired
		}
		if !totp.Validate(code, a.totpSecret) {
			return "", time.Time{}, ErrMFAInvalid
		}
	}
	expires := time.Now().Add(a.ttl)
	token, err := GenerateToken(a.secret, Claims{UserID: RoleAdmin, RoleName: RoleAdmin, SessionID: uuid.NewString()}, a.ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expires, nil
}

// Verify parses token and returns the caller it represents.
func (a *Authenticator) Verify(token string) (UserContext, error) {
	claims, err := ParseToken(a.secret, token)
	if err != nil {
		return UserContext{}, err
	}
	user := UserContext{UserID: claims.UserID, RoleName: claims.RoleName, SessionID: claims.SessionID}
	if claims.ExpiresAt != nil {
		user.ExpiresAt = claims.ExpiresAt.Time
	}
	return user, nil
}
