package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hazelline/communitybot-backend/pkg/config"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// AdminTokenPayload captures the data available when minting an admin JWT.
// Admin tokens are issued per guild to the interactions shim, which only
// forwards config commands from users holding the guild's admin permission.
type AdminTokenPayload struct {
	UserID  int64
	GuildID int64
	JTI     string
}

// AdminTokenClaims represents the typed JWT attached to admin config calls.
type AdminTokenClaims struct {
	UserID  int64 `json:"user_id,string"`
	GuildID int64 `json:"guild_id,string"`
	jwt.RegisteredClaims
}

// MintAdminToken issues a signed JWT for the provided payload using the configured TTL.
func MintAdminToken(cfg config.JWTConfig, now time.Time, payload AdminTokenPayload) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if payload.UserID == 0 {
		return "", fmt.Errorf("user id is required")
	}
	if payload.GuildID == 0 {
		return "", fmt.Errorf("guild id is required")
	}

	issuedAt := jwt.NewNumericDate(now)
	expiry := jwt.NewNumericDate(now.Add(cfg.Expiration()))

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	claims := AdminTokenClaims{
		UserID:  payload.UserID,
		GuildID: payload.GuildID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  issuedAt,
			ExpiresAt: expiry,
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAdminToken validates the JWT string and returns typed claims.
func ParseAdminToken(cfg config.JWTConfig, tokenString string) (*AdminTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AdminTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}

	return claims, nil
}
