package config

import (
	"net/url"

	"gatekeeper/internal/authentication"
)

func validateURL(urlStr, fieldName string) error {
	if urlStr == "" {
		return authentication.NewConfigurationError(fieldName, "is required")
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return authentication.NewConfigurationError(fieldName, "is not a valid URL: "+err.Error())
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return authentication.NewConfigurationError(fieldName, "must have http or https scheme")
	}

	if parsedURL.Host == "" {
		return authentication.NewConfigurationError(fieldName, "must include a host")
	}

	return nil
}
