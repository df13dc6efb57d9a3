package config

// OAuthConfig holds the credentials of the single external identity
// provider.  The provider routes are not registered when ClientID is empty.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func LoadOAuthConfig() OAuthConfig {
	return OAuthConfig{
		ClientID:     envStr("GOOGLE_CLIENT_ID", ""),
		ClientSecret: envStr("GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:  envStr("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/oauth/google/callback"),
	}
}

// Enabled reports whether the provider is configured.
func (o OAuthConfig) Enabled() bool { return o.ClientID != "" && o.ClientSecret != "" }
