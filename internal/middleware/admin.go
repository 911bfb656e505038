package middleware

import (
	"net/http"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware lets only the operator through, proven by the admin key or by
// an operator signature. A bare caller address never passes. Must run after
// CallerMiddleware.
func AdminMiddleware(cfg *config.Config, operator common.Address) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := CallerFrom(c)
		switch CallerAuthMethod(c) {
		case AuthAdminKey:
			c.Next()
			return
		case AuthSignature:
			if caller != operator {
				c.Error(ledger.ErrNotOperator.Withf("%s", caller.Hex()))
				c.Abort()
				return
			}
			c.Next()
			return
		}

		if cfg == nil || cfg.Auth.AdminKey == "" {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin key not configured"})
			c.Abort()
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin key or operator signature required"})
		c.Abort()
	}
}
