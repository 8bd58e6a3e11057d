package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nurpe/giga-contracts/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims is the access token payload issued by the identity service.
type Claims struct {
	Name      string   `json:"name"`
	CountryID string   `json:"country_id"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

type Parser struct {
	secret []byte
}

func NewParser(secret string) *Parser {
	return &Parser{secret: []byte(secret)}
}

// Parse validates an HMAC-signed access token and returns the principal it
// describes. Unknown roles are dropped.
func (p *Parser) Parse(token string) (model.Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, ErrTokenExpired
		}
		return model.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return model.Principal{}, ErrInvalidToken
	}
	return claims.Principal()
}

func (c *Claims) Principal() (model.Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil {
		return model.Principal{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	principal := model.Principal{
		UserID: userID,
		Name:   strings.TrimSpace(c.Name),
	}
	if c.CountryID != "" {
		countryID, err := uuid.Parse(c.CountryID)
		if err != nil {
			return model.Principal{}, fmt.Errorf("%w: country_id is not a uuid", ErrInvalidToken)
		}
		principal.CountryID = countryID
	}
	for _, raw := range c.Roles {
		role := model.Role(strings.ToLower(strings.TrimSpace(raw)))
		if role.Valid() {
			principal.Roles = append(principal.Roles, role)
		}
	}
	return principal, nil
}
