package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"
)

// CallerKey holds the caller identity every ledger operation is attributed to.
const CallerKey = "caller"

// CallerHeader names the caller when DevAuth is in use.
const CallerHeader = "X-Caller"

// Auth validates Auth0 access tokens and attributes the request to the
// token's subject.
func Auth(domain, audience string) ([]gin.HandlerFunc, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, fmt.Errorf("parse issuer url: %w", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)
	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("set up jwt validator: %w", err)
	}

	mw := jwtmiddleware.New(jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, _ error) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","message":"Authentication required"}`))
		}),
	)

	return []gin.HandlerFunc{adapter.Wrap(mw.CheckJWT), subjectAsCaller}, nil
}

func subjectAsCaller(c *gin.Context) {
	sub, ok := GetAuth0ID(c)
	if !ok || sub == "" {
		unauthorized(c)
		return
	}
	c.Set(CallerKey, sub)
	c.Next()
}

// DevAuth trusts the X-Caller header. It is for local runs and tests only.
func DevAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader(CallerHeader)
		if caller == "" {
			unauthorized(c)
			return
		}
		c.Set(CallerKey, caller)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
}

// GetAuth0ID extracts the subject claim of the validated token.
func GetAuth0ID(c *gin.Context) (string, bool) {
	claims, ok := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !ok {
		GetLogger(c).DebugContext(c, "no token claims in request context")
		return "", false
	}
	return claims.RegisteredClaims.Subject, true
}

// Caller returns the identity set by Auth or DevAuth.
func Caller(c *gin.Context) (string, bool) {
	caller := c.GetString(CallerKey)
	return caller, caller != ""
}

// BearerToken returns the raw access token, empty when there is none.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return token
}
