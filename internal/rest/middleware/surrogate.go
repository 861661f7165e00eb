package middleware

import (
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
)

// SetSurrogateKey tags the response so the CDN can purge it together with
// everything else cached for the account.
func SetSurrogateKey(c *gin.Context, accountRef string) {
	if accountRef == "" {
		return
	}
	c.Header(types.HeaderSurrogateKey, types.SurrogateKeyForAccount(accountRef))
}
