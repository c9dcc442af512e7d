package commerce

import "errors"

// PlatformClientConfig holds configuration for the commerce platform API
type PlatformClientConfig struct {
	// BaseURL is the base URL of the platform's admin API
	BaseURL string
	// AccessToken is the private app access token sent on every request
	AccessToken string
	// StatusFieldKey is the order field carrying the operational status tag
	StatusFieldKey string
	// BranchFieldKey is the order field carrying the supply-branch name
	BranchFieldKey string
	// NestedOrderPayload indicates the order object is wrapped under an
	// "order" key instead of being the response root
	NestedOrderPayload bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

// Errors for platform configuration
var (
	ErrPlatformConfigMissingBaseURL = errors.New("platform: base URL is required")
	ErrPlatformConfigMissingToken   = errors.New("platform: access token is required")
)

// Validate validates the platform configuration
func (c *PlatformClientConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrPlatformConfigMissingBaseURL
	}
	if c.AccessToken == "" {
		return ErrPlatformConfigMissingToken
	}
	if c.StatusFieldKey == "" {
		c.StatusFieldKey = "operational_status"
	}
	if c.BranchFieldKey == "" {
		c.BranchFieldKey = "supply_branch"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}
