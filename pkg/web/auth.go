package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"
	"github.com/terrycain/offline-cache-gateway/pkg/utils"
)

// Authenticator checks bearer tokens on the admin routes.
type Authenticator struct {
	Keys *KeySource

	// RequiredScope must appear in the space separated scope claim when set.
	RequiredScope string
	// SkipClaimsValidation disables expiry checks, for debugging only.
	SkipClaimsValidation bool
}

func (a *Authenticator) keyFunc(ctx context.Context) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		wellKnownData, err := a.Keys.WellKnown(ctx)
		if err != nil {
			return nil, err
		}
		alg, _ := token.Header["alg"].(string)
		if !utils.ContainsFold(wellKnownData.SignatureTypes, alg) {
			return nil, fmt.Errorf("signature type %s is not valid", alg)
		}

		keyIDInterface, exists := token.Header["kid"]
		if !exists {
			return nil, errors.New("kid claim in header doesnt exist")
		}
		keyID, ok := keyIDInterface.(string)
		if !ok {
			return nil, errors.New("kid claim in header is not a string")
		}

		return a.Keys.LookupKey(ctx, keyID)
	}
}

func (a *Authenticator) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.Request.Header.Get("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid Authorization header"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		parser := jwt.Parser{SkipClaimsValidation: a.SkipClaimsValidation}
		parsedToken, err := parser.Parse(token, a.keyFunc(c.Request.Context()))
		if err != nil {
			log.Warn().Err(err).Msg("Failed to validate token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to validate token"})
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok || !parsedToken.Valid {
			log.Warn().Msg("Failed to validate token, something wrong with claims")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to validate token"})
			return
		}

		if a.RequiredScope != "" {
			scope, _ := claims["scope"].(string)
			if !utils.ContainsFold(strings.Fields(scope), a.RequiredScope) {
				log.Warn().Str("scope", scope).Msg("Token missing required scope")
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient scope"})
				return
			}
		}

		if sub, ok2 := claims["sub"].(string); ok2 {
			c.Set("subject", sub)
		}
		c.Next()
	}
}
