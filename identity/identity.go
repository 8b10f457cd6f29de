package identity

// Identity is the minimal user record reported by an identity provider.
// It is an immutable snapshot: providers replace it wholesale on every
// state notification and nothing downstream mutates it in place.
type Identity struct {
	ID            string `json:"id"`             // Opaque provider-assigned user identifier
	Email         string `json:"email"`          // Address the account was created with
	EmailVerified bool   `json:"email_verified"` // Whether the provider has confirmed the address
}
