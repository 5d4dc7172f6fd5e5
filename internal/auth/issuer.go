package auth

// Issuer mints tokens with the default user scopes. It satisfies the domain
// TokenIssuer contract.
type Issuer struct {
	cfg Config
}

// NewIssuer constructs an Issuer.
func NewIssuer(cfg Config) *Issuer {
	return &Issuer{cfg: cfg}
}

// Issue signs a token for the user.
func (i *Issuer) Issue(userID, email string) (string, error) {
	return Issue(userID, email, DefaultScopes, i.cfg)
}
