package client

import (
	"encoding/json"
	"fmt"
	"os"
)

// Environment variable names read by CredentialsFromEnv.
const (
	EnvURL    = "QIRIN_URL"
	EnvID     = "QIRIN_ID"
	EnvSecret = "QIRIN_SECRET"
)

// Credentials identify the caller to the job service.
type Credentials struct {
	URL    string `json:"url"`
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// LoadCredentials reads credentials from a JSON file.
func LoadCredentials(path string) (Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, creds.validate()
}

// CredentialsFromEnv reads credentials from the environment.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		URL:    os.Getenv(EnvURL),
		ID:     os.Getenv(EnvID),
		Secret: os.Getenv(EnvSecret),
	}
	return creds, creds.validate()
}

func (c Credentials) validate() error {
	if c.URL == "" {
		return fmt.Errorf("credentials are missing a service URL")
	}
	if c.ID == "" || c.Secret == "" {
		return fmt.Errorf("credentials are missing an id or secret")
	}
	return nil
}
