package types

import "fmt"

const (
	HeaderAuthorization   = "Authorization"
	HeaderRequestID       = "X-Request-ID"
	HeaderStripeSignature = "Stripe-Signature"
	HeaderSurrogateKey    = "Surrogate-Key"
	HeaderFastlyKey       = "Fastly-Key"
)

// SurrogateKeyForAccount is the CDN key tagging every response that depends on
// an account's subscriptions.
func SurrogateKeyForAccount(accountRef string) string {
	return fmt.Sprintf("Account:%s", accountRef)
}
