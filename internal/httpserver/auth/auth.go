package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"collabhub/internal/model"
)

const principalKey = "principal"

// GenerateToken creates a signed token carrying the caller's identity.
func GenerateToken(p model.Principal, secret string) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  p.UserID,
		"email":    p.Email,
		"role":     p.Role,
		"group_id": p.GroupID,
		"exp":      time.Now().Add(24 * time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and extracts the principal.
func ParseToken(tokenStr, secret string) (model.Principal, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return model.Principal{}, err
	}

	if !token.Valid {
		return model.Principal{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return model.Principal{}, jwt.ErrTokenMalformed
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return model.Principal{}, jwt.ErrTokenMalformed
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	groupID, _ := claims["group_id"].(float64)

	return model.Principal{
		UserID:  int(userID),
		Email:   email,
		Role:    role,
		GroupID: int(groupID),
	}, nil
}

func ExtractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// Middleware authenticates the request and stores the principal in the
// gin context so handlers can use it.
func Middleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c.Request)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		principal, err := ParseToken(token, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		SetPrincipal(c, principal)
		c.Next()
	}
}

func SetPrincipal(c *gin.Context, p model.Principal) {
	c.Set(principalKey, p)
}

// MustPrincipal returns the authenticated principal. It is only valid on
// routes behind Middleware; elsewhere it returns the zero principal.
func MustPrincipal(c *gin.Context) model.Principal {
	v, exists := c.Get(principalKey)
	if !exists {
		return model.Principal{}
	}
	p, ok := v.(model.Principal)
	if !ok {
		return model.Principal{}
	}
	return p
}
