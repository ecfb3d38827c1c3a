package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// signingKey authenticates bearer tokens issued by Login. Gone from
// the corpus is any JWT library, so a token is a bcrypt-backed login
// plus an HMAC-signed "<user-id>.<signature>" opaque bearer value
// rather than a JWT.
func signingKey() []byte {
	if key := os.Getenv("AUTH_SIGNING_KEY"); key != "" {
		return []byte(key)
	}
	return []byte("dev-only-signing-key")
}

// GenerateToken issues an opaque bearer token for userID.
func GenerateToken(userID int64) (string, error) {
	payload := strconv.FormatInt(userID, 10)
	mac := hmac.New(sha256.New, signingKey())
	mac.Write([]byte(payload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("%s.%s", payload, sig), nil
}

func verifyToken(token string) (userID int64, ok bool) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return 0, false
	}
	mac := hmac.New(sha256.New, signingKey())
	mac.Write([]byte(parts[0]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(parts[1])) {
		return 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// AuthMiddleware guards the sweep-trigger endpoint only; read-only
// status/report/health/metrics routes stay public (spec.md §13).
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		userID, ok := verifyToken(token)
		if token == "" || !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}
