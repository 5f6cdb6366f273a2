package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stackmates/stackmates/internal/errors"
	"golang.org/x/term"
)

// TokenSettingsURL is where users create a personal access token
const TokenSettingsURL = "https://github.com/settings/tokens"

// TokenFromEnv returns the first GitHub token found in the environment
func TokenFromEnv() string {
	for _, envVar := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if token := os.Getenv(envVar); token != "" {
			return token
		}
	}
	return ""
}

// Prompter reads a token interactively. Input from a terminal is not echoed.
type Prompter struct {
	In  *os.File
	Out io.Writer
}

// NewPrompter creates a prompter on stdin/stderr
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr}
}

// IsInteractive reports whether input comes from a terminal
func (p *Prompter) IsInteractive() bool {
	return term.IsTerminal(int(p.In.Fd()))
}

// PromptToken asks for a personal access token
func (p *Prompter) PromptToken() (string, error) {
	fmt.Fprintf(p.Out, "Create a token at: %s\n", TokenSettingsURL)
	fmt.Fprint(p.Out, "Enter GitHub token: ")

	token, err := p.readSecurely()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.ValidationError("a GitHub token is required")
	}
	return token, nil
}

// readSecurely reads without echo on a terminal, or a plain line from a pipe
func (p *Prompter) readSecurely() (string, error) {
	if p.IsInteractive() {
		bytes, err := term.ReadPassword(int(p.In.Fd()))
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
