package handler

// NewAuthenticator returns the authenticator for an API version. Unknown
// versions yield nil, which the controller treats as a wiring error.
func NewAuthenticator(version int) Authenticator {
	if version == 1 {
		return InitAuthHandler()
	}
	return nil
}
