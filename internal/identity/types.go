package identity

// TokenBundle carries the three bearer credentials issued by the
// provider after authentication. Contents are opaque; nothing here
// parses them.
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	IDToken      string `json:"idToken"`
}

// AccountAttribute is a single name/value pair from the provider-side
// account record, in provider order.
type AccountAttribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
