package auth

import (
	"context"
	"os"
	"slices"
)

// envVars maps environment variable names to cookie names.
var envVars = map[string]string{
	"INSTAGRAM_SESSIONID":  "sessionid",
	"INSTAGRAM_CSRFTOKEN":  "csrftoken",
	"INSTAGRAM_DS_USER_ID": "ds_user_id",
}

// EnvSource reads session cookies from INSTAGRAM_* environment variables.
type EnvSource struct{}

// Cookies returns cookies from the environment. A csrftoken alone is not a
// session, so nothing is returned unless INSTAGRAM_SESSIONID is set.
func (EnvSource) Cookies(context.Context) (map[string]string, error) {
	if os.Getenv("INSTAGRAM_SESSIONID") == "" {
		return nil, nil //nolint:nilnil // no session configured is not an error
	}

	cookies := make(map[string]string)
	for envVar, name := range envVars {
		if value := os.Getenv(envVar); value != "" {
			cookies[name] = value
		}
	}
	return cookies, nil
}

// EnvVars returns the supported environment variable names, for help output.
func EnvVars() []string {
	vars := make([]string, 0, len(envVars))
	for v := range envVars {
		vars = append(vars, v)
	}
	slices.Sort(vars)
	return vars
}
