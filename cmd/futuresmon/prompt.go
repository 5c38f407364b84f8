package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"futures-monitor/internal/config"
)

type readFunc func(prompt string) (string, error)

// credentialInput is where missing credentials are read from.
var credentialInput = os.Stdin

// promptCredentials asks for whatever the config and environment left empty.
// It does nothing unless stdin is a terminal. Input is not echoed.
func promptCredentials(in *os.File, out io.Writer, ex *config.ExchangeConfig) error {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	return fillCredentials(ex, func(prompt string) (string, error) {
		fmt.Fprint(out, prompt)
		value, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(value), nil
	})
}

func fillCredentials(ex *config.ExchangeConfig, read readFunc) error {
	if ex.APIKey == "" {
		key, err := read("API Key: ")
		if err != nil {
			return fmt.Errorf("read api key: %w", err)
		}
		ex.APIKey = strings.TrimSpace(key)
	}
	if ex.NeedsSecret() && ex.APISecret == "" {
		secret, err := read("Secret Key: ")
		if err != nil {
			return fmt.Errorf("read secret key: %w", err)
		}
		ex.APISecret = strings.TrimSpace(secret)
	}
	return nil
}
