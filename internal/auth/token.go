package auth

import (
	"errors"
	"fmt"
	"time"

	"backend/internal/apperr"
	"backend/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes. A restore token must never pass where a session token is
// expected and vice versa; Verify callers check Purpose after signature and
// expiry validation.
const (
	PurposeSession = "session"
	PurposeRestore = "restore"
)

// Claims is the decoded payload of a signed token.
type Claims struct {
	SubjectID uint
	Username  string
	Role      model.Role
	Purpose   string
}

// TokenService issues and verifies HS256-signed bearer tokens. The secret is
// injected at construction; rotating it invalidates all outstanding tokens,
// which is acceptable at these TTLs.
type TokenService struct {
	secret     []byte
	sessionTTL time.Duration
	restoreTTL time.Duration
}

func NewTokenService(secret string, sessionTTL, restoreTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		restoreTTL: restoreTTL,
	}
}

// IssueSession signs a short-lived session token carrying the subject id,
// username and role for downstream authorization.
func (s *TokenService) IssueSession(user *model.User) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":      fmt.Sprintf("%d", user.ID),
		"username": user.Username,
		"role":     string(user.Role),
		"purpose":  PurposeSession,
		"jti":      uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(s.sessionTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// IssueRestore signs a restore-purpose token carrying only the subject id.
// The same token form backs both account restoration and password reset.
func (s *TokenService) IssueRestore(userID uint) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":     fmt.Sprintf("%d", userID),
		"purpose": PurposeRestore,
		"jti":     uuid.NewString(),
		"iat":     now.Unix(),
		"exp":     now.Add(s.restoreTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify checks signature and expiry and decodes the claims. Expired tokens
// return apperr.ErrTokenExpired, anything else malformed returns
// apperr.ErrTokenInvalid, so callers can give distinct recovery messages.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrTokenInvalid
	}
	if !token.Valid {
		return nil, apperr.ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.ErrTokenInvalid
	}

	sub, err := mapClaims.GetSubject()
	if err != nil {
		return nil, apperr.ErrTokenInvalid
	}
	var subjectID uint
	if _, err := fmt.Sscanf(sub, "%d", &subjectID); err != nil {
		return nil, apperr.ErrTokenInvalid
	}

	claims := &Claims{SubjectID: subjectID}
	if username, ok := mapClaims["username"].(string); ok {
		claims.Username = username
	}
	if role, ok := mapClaims["role"].(string); ok {
		claims.Role = model.Role(role)
	}
	if purpose, ok := mapClaims["purpose"].(string); ok {
		claims.Purpose = purpose
	}
	return claims, nil
}

// VerifySession verifies a token and requires the session purpose.
func (s *TokenService) VerifySession(tokenString string) (*Claims, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeSession {
		return nil, apperr.ErrWrongTokenPurpose
	}
	return claims, nil
}

// VerifyRestore verifies a token, requires the restore purpose and returns
// the embedded subject id. The token itself is the authorization proof for
// restore and password-reset flows.
func (s *TokenService) VerifyRestore(tokenString string) (uint, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return 0, err
	}
	if claims.Purpose != PurposeRestore {
		return 0, apperr.ErrWrongTokenPurpose
	}
	return claims.SubjectID, nil
}
