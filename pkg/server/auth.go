package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/wuxler/otaserve/pkg/errdefs"
)

// tokenTTL is the lifetime of a dashboard bearer token.
const tokenTTL = 24 * time.Hour

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin verifies dashboard credentials and issues an HS256 bearer
// token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errdefs.Newf(errdefs.ErrInvalidParameter, "parse login body: %v", err))
		return
	}
	user, err := s.store.CheckPassword(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		writeError(c, errdefs.NewE(errdefs.ErrSystem, err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed})
}

// requireBearer validates the Authorization header of dashboard routes.
func (s *Server) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(c, errdefs.Newf(errdefs.ErrUnauthorized, "missing bearer token"))
			return
		}
		claims := &jwt.RegisteredClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errdefs.Newf(errdefs.ErrUnauthorized, "unexpected signing method %v", t.Header["alg"])
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !parsed.Valid {
			writeError(c, errdefs.Newf(errdefs.ErrUnauthorized, "invalid bearer token"))
			return
		}
		c.Set("username", claims.Subject)
		c.Next()
	}
}
