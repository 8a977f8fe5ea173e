package jwt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claim names shared with the HRIS backend
const (
	ClaimUserID = "user_id"
	ClaimRole   = "role"
	ClaimName   = "name"
	ClaimEmail  = "email"
	ClaimType   = "type"

	TokenTypeAccess  = "access"
	TokenTypeChannel = "channel"
)

var ErrInvalidClaims = errors.New("token claims do not describe a user")

type Service interface {
	GenerateAccessToken(u user.User) (token string, expiresAt int64, err error)
	GenerateChannelToken(u user.User) (token string, expiresIn int, err error)
	ValidateChannelToken(tokenString string) (user.User, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime  string
	channelTokenExpirationTime time.Duration
	tokenAuth                  *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService verifies HS256 tokens signed with the secret shared with the
// backend. accessTokenExpirationTime is a time.ParseDuration string.
func NewJWTService(secretKey string, accessTokenExpirationTime string, channelTokenTTL time.Duration) Service {
	if channelTokenTTL <= 0 {
		channelTokenTTL = 5 * time.Minute
	}
	return &JWTService{
		accessTokenExpirationTime:  accessTokenExpirationTime,
		channelTokenExpirationTime: channelTokenTTL,
		tokenAuth:                  jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

// GenerateAccessToken issues an access token in the backend's format. The
// portal only needs it for development logins and tests.
func (j *JWTService) GenerateAccessToken(u user.User) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := userClaims(u)
	claims[ClaimType] = TokenTypeAccess
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

// GenerateChannelToken issues a short-lived token for opening the
// presence/location websocket from clients that cannot set headers.
func (j *JWTService) GenerateChannelToken(u user.User) (token string, expiresIn int, err error) {
	claims := userClaims(u)
	claims[ClaimType] = TokenTypeChannel
	claims["exp"] = time.Now().Add(j.channelTokenExpirationTime).Unix()

	_, tokenString, err := j.tokenAuth.Encode(claims)
	if err != nil {
		return "", 0, err
	}
	return tokenString, int(j.channelTokenExpirationTime.Seconds()), nil
}

// ValidateChannelToken validates a channel token and returns its user
func (j *JWTService) ValidateChannelToken(tokenString string) (user.User, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return user.User{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.User{}, err
	}
	if t, _ := claims[ClaimType].(string); t != TokenTypeChannel {
		return user.User{}, jwt.ErrInvalidJWT()
	}
	return UserFromClaims(claims)
}

// UserFromClaims rebuilds the user carried by a verified token. A missing
// or unrecognised role yields RoleUnknown rather than an error.
func UserFromClaims(claims map[string]interface{}) (user.User, error) {
	id, _ := claims[ClaimUserID].(string)
	if id == "" {
		return user.User{}, fmt.Errorf("%w: missing %s", ErrInvalidClaims, ClaimUserID)
	}
	role, _ := claims[ClaimRole].(string)
	name, _ := claims[ClaimName].(string)
	email, _ := claims[ClaimEmail].(string)

	return user.User{
		ID:    id,
		Type:  user.ParseRole(role),
		Name:  name,
		Email: email,
	}, nil
}

func userClaims(u user.User) map[string]interface{} {
	return map[string]interface{}{
		ClaimUserID: u.ID,
		ClaimRole:   string(u.Type),
		ClaimName:   u.Name,
		ClaimEmail:  u.Email,
	}
}
