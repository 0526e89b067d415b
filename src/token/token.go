package token

import (
	"CafeAPI/src/logging"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
)

const (
	QueryParam       = "api-key"
	forbiddenMessage = "Sorry, that's not allowed. Make sure you have the correct api_key."
)

// KeyChecker compares a supplied key against the configured shared secret,
// either a plain value or a bcrypt hash of it.
type KeyChecker struct {
	key  []byte
	hash []byte
}

func NewKeyChecker(key, hash string) *KeyChecker {
	kc := &KeyChecker{}
	if hash != "" {
		kc.hash = []byte(hash)
	} else {
		kc.key = []byte(key)
	}
	return kc
}

func (kc *KeyChecker) Valid(supplied string) bool {
	if supplied == "" {
		return false
	}
	if kc.hash != nil {
		return bcrypt.CompareHashAndPassword(kc.hash, []byte(supplied)) == nil
	}
	if len(kc.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(kc.key, []byte(supplied)) == 1
}

// HashKey returns the bcrypt hash to put in security.api_key_hash.
func HashKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// RequireAPIKey rejects requests whose api-key query parameter does not match
// with 403 before the wrapped handler runs.
func RequireAPIKey(kc *KeyChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if kc.Valid(r.URL.Query().Get(QueryParam)) {
				next.ServeHTTP(w, r)
				return
			}

			logging.Ctx(r.Context()).Warn().
				Str("path", r.URL.Path).
				Bool("key_present", strings.TrimSpace(r.URL.Query().Get(QueryParam)) != "").
				Msg("Rejected request with invalid api key")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]map[string]string{
				"error": {"Forbidden": forbiddenMessage},
			})
		})
	}
}
