package auth

import (
	"context"
	"os"
)

// envCookies maps environment variable names to the cookie each carries.
var envCookies = map[string]string{
	"TIKTOK_SESSIONID": "sessionid",
}

// EnvSource reads session cookies from environment variables.
type EnvSource struct{}

// Cookies returns cookies found in the environment, or nil when none are set.
func (EnvSource) Cookies(_ context.Context) (map[string]string, error) {
	cookies := make(map[string]string)
	for envVar, cookieName := range envCookies {
		if value := os.Getenv(envVar); value != "" {
			cookies[cookieName] = value
		}
	}

	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // no env vars set is not an error
	}
	return cookies, nil
}

// EnvVars returns the environment variable names EnvSource reads.
// This is useful for generating help messages.
func EnvVars() []string {
	vars := make([]string, 0, len(envCookies))
	for envVar := range envCookies {
		vars = append(vars, envVar)
	}
	return vars
}
