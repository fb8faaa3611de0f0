package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type subjectKeyType string

const SubjectKey subjectKeyType = "subject"

// Auth validates a Bearer JWT signed with the HMAC secret and puts its
// subject into the request context.
func Auth(hmacSecret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ah := r.Header.Get("Authorization")
			if len(ah) < len("Bearer ") || !strings.EqualFold(ah[:len("Bearer ")], "bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			tokenStr := strings.TrimSpace(ah[len("Bearer "):])
			token, err := parser.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
				return hmacSecret, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil || sub == "" {
				unauthorized(w, "token has no subject")
				return
			}
			ctx := context.WithValue(r.Context(), SubjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject returns the authenticated subject, or "" when auth is off.
func GetSubject(ctx context.Context) string {
	if v := ctx.Value(SubjectKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeEnvelopeError(w, http.StatusUnauthorized, "unauthorized", msg)
}

// IssueToken signs an HS256 token for subject that expires after ttl.
func IssueToken(hmacSecret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(hmacSecret)
}
