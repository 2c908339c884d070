package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

// Credential issuance lives with the identity provider. These helpers only
// mint and read the bearer tokens it hands out, for the token command and
// for tests.

// IssueToken signs an HS256 token carrying actor_id and role.
func IssueToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	if !actor.Role.Valid() {
		return "", fmt.Errorf("invalid role %q", actor.Role)
	}
	if actor.ID <= 0 {
		return "", errors.New("actor id must be positive")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"actor_id": actor.ID,
		"role":     string(actor.Role),
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseToken verifies tokenString and extracts the actor.
func ParseToken(secret, tokenString string) (models.Actor, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(secret), nil
	})
	if err != nil {
		return models.Actor{}, err
	}
	if !token.Valid {
		return models.Actor{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Actor{}, errors.New("unexpected claims type")
	}

	var actor models.Actor
	// JSON numbers decode as float64
	switch id := claims["actor_id"].(type) {
	case float64:
		actor.ID = int64(id)
	case int64:
		actor.ID = id
	case int:
		actor.ID = int64(id)
	}
	if actor.ID <= 0 {
		return models.Actor{}, errors.New("missing actor_id claim")
	}

	role, _ := claims["role"].(string)
	actor.Role = models.Role(role)
	if !actor.Role.Valid() {
		return models.Actor{}, fmt.Errorf("invalid role claim %q", role)
	}
	return actor, nil
}
