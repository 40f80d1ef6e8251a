package federation

import "errors"

var (
	ErrProviderMisconfigured = errors.New("provider is misconfigured")
	ErrFetchUserInfoFailed   = errors.New("failed to fetch user info from provider")
	ErrExchangeCodeFailed    = errors.New("failed to exchange authorization code for token")
)
