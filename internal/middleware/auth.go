package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/mutualaid/internal/auth"
)

// Claims are the identity token claims. Subject is the user id.
type Claims struct {
	CommunityID string `json:"community_id"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing bearer token")

// IssueToken signs an identity token for userID in communityID.
func IssueToken(secret []byte, userID, communityID string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		CommunityID: communityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies an HS256 identity token and returns its identity.
func ParseToken(secret []byte, token string, now func() time.Time) (auth.AuthContext, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return auth.AuthContext{}, err
	}
	if claims.Subject == "" || claims.CommunityID == "" {
		return auth.AuthContext{}, errors.New("token missing subject or community")
	}
	return auth.AuthContext{UserID: claims.Subject, CommunityID: claims.CommunityID}, nil
}

// bearerToken reads the Authorization header. Websocket clients cannot set
// headers, so a token query parameter is accepted too.
func bearerToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			return "", errMissingToken
		}
		return strings.TrimSpace(tok), nil
	}
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok, nil
	}
	return "", errMissingToken
}

// RequireIdentity validates the identity token and populates AuthContext.
func RequireIdentity(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := bearerToken(r)
			if err != nil {
				unauthorized(w)
				return
			}
			ac, err := ParseToken(secret, tok, nil)
			if err != nil {
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "You must be logged in"})
}
