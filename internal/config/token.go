package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// TokenEnv holds the bearer credential and wins over every other source
const TokenEnv = "PODTAIL_TOKEN"

// LoadToken resolves the bearer credential: PODTAIL_TOKEN, then token, then
// the first line of token_file. No credential at all is not an error; the
// server decides whether to accept the request.
func LoadToken(cfg *Config) (string, error) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		return v, nil
	}
	if cfg == nil {
		return "", nil
	}
	if v := strings.TrimSpace(cfg.Token); v != "" {
		return v, nil
	}
	if cfg.TokenFile == "" {
		return "", nil
	}
	return readTokenFile(cfg.TokenFile)
}

func readTokenFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	return "", nil
}

// TokenSource re-reads the credential on every request so a rotated token
// file is picked up without restarting a long follow.
type TokenSource struct {
	cfg      *Config
	override string
}

// NewTokenSource returns a source backed by cfg. A non-empty override (from a
// command line flag) is returned as is.
func NewTokenSource(cfg *Config, override string) *TokenSource {
	return &TokenSource{cfg: cfg, override: strings.TrimSpace(override)}
}

// Token implements logapi.TokenSource
func (s *TokenSource) Token() (string, error) {
	if s.override != "" {
		return s.override, nil
	}
	return LoadToken(s.cfg)
}
