package common

// Metadata keys used by the gRPC boundary.
const (
	// AccessTokenHeaderName carries the access token on inbound requests.
	AccessTokenHeaderName = "access_token"
	// RefreshTokenHeaderName carries the refresh token, both on inbound
	// logout/refresh requests and in the login response header.
	RefreshTokenHeaderName = "refresh_token"
	// UserAgentHeaderName is the standard gRPC user agent key.
	UserAgentHeaderName = "user-agent"
)
