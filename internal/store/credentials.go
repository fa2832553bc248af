package store

import "os"

// Credentials supplies the bearer token for transport and REST auth.
// Token returns "" when no credential is available.
type Credentials interface {
	Token() string
}

// StaticCredentials holds a fixed token.
type StaticCredentials string

func (c StaticCredentials) Token() string { return string(c) }

// EnvCredentials reads the token from an environment variable on each call,
// so a rotated token is picked up by the next connect.
type EnvCredentials struct {
	Key string
}

func (c EnvCredentials) Token() string { return os.Getenv(c.Key) }

// AuthHeaders builds the connect header map: a Bearer Authorization header
// when a token is present, otherwise an empty map.
func AuthHeaders(creds Credentials) map[string]string {
	headers := map[string]string{}
	if creds == nil {
		return headers
	}
	if token := creds.Token(); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}
