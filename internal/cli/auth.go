// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/peterh/liner"
	"golang.org/x/term"

	"github.com/jeranaias/snailgpt-tui/internal/account"
)

// ErrAborted is returned when the user cancels the auth flow.
var ErrAborted = errors.New("authentication aborted")

const maxMenuAttempts = 10

// =============================================================================
// PROMPTER
// =============================================================================

// Prompter wraps line and password input for the pre-launch auth flow.
type Prompter struct {
	line *liner.State
}

// NewPrompter creates a Prompter. Call Close when done to restore the
// terminal state.
func NewPrompter() *Prompter {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	return &Prompter{line: l}
}

// Close restores the terminal.
func (p *Prompter) Close() {
	p.line.Close()
}

// ReadLine prompts for one line of visible input.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	s, err := p.line.Prompt(prompt)
	if err != nil {
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// ReadPassword prompts for input without echo.
func (p *Prompter) ReadPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// =============================================================================
// AUTH FLOW
// =============================================================================

// RunAuth runs the interactive login menu and returns the
// authenticated account. It loops until the user succeeds or aborts.
func RunAuth(store *account.Store) (*account.Account, error) {
	p := NewPrompter()
	defer p.Close()

	fmt.Println("🐌 SnailGPT")
	fmt.Println()

	for attempt := 0; attempt < maxMenuAttempts; attempt++ {
		fmt.Println("  [1] Log in")
		fmt.Println("  [2] Create account")
		fmt.Println("  [3] Reset password")
		fmt.Println("  [4] Update profile")
		fmt.Println("  [q] Quit")
		fmt.Println()

		choice, err := p.ReadLine("> ")
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(choice) {
		case "1", "login", "l":
			acct, err := p.login(store)
			if err == nil {
				return acct, nil
			}
			if errors.Is(err, ErrAborted) {
				continue
			}
			fmt.Println(authErrorText(err))
			fmt.Println()

		case "2", "register", "r":
			acct, err := p.register(store)
			if err == nil {
				return acct, nil
			}
			if errors.Is(err, ErrAborted) {
				continue
			}
			fmt.Println(authErrorText(err))
			fmt.Println()

		case "3", "reset":
			if err := p.resetPassword(store); err != nil && !errors.Is(err, ErrAborted) {
				fmt.Println(authErrorText(err))
			}
			fmt.Println()

		case "4", "profile":
			acct, err := p.updateProfile(store)
			if err == nil {
				return acct, nil
			}
			if !errors.Is(err, ErrAborted) {
				fmt.Println(authErrorText(err))
			}
			fmt.Println()

		case "q", "quit", "exit":
			return nil, ErrAborted

		default:
			fmt.Println("Please pick 1, 2, 3, 4 or q.")
			fmt.Println()
		}
	}
	return nil, ErrAborted
}

func (p *Prompter) login(store *account.Store) (*account.Account, error) {
	id, err := p.ReadLine("Email or username: ")
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: enter an email or username", account.ErrValidation)
	}

	pass, err := p.ReadPassword("Password: ")
	if err != nil {
		return nil, err
	}

	acct, err := store.Login(id, pass)
	if err != nil {
		return nil, err
	}
	fmt.Printf("Welcome back, %s!\n\n", acct.Username)
	return acct, nil
}

func (p *Prompter) register(store *account.Store) (*account.Account, error) {
	email, err := p.ReadLine("Email: ")
	if err != nil {
		return nil, err
	}
	username, err := p.ReadLine("Username: ")
	if err != nil {
		return nil, err
	}
	if username == "" {
		return nil, fmt.Errorf("%w: username must not be empty", account.ErrValidation)
	}

	pass, err := p.ReadPassword("Password: ")
	if err != nil {
		return nil, err
	}
	confirm, err := p.ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	if pass != confirm {
		return nil, fmt.Errorf("%w: passwords do not match", account.ErrValidation)
	}

	acct, err := store.Register(email, username, pass)
	if err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Printf("Account created. Your recovery code is: %s\n", acct.RecoveryCode)
	fmt.Println("Store it somewhere safe. You will need it to reset your password.")
	fmt.Println()
	return acct, nil
}

func (p *Prompter) resetPassword(store *account.Store) error {
	email, err := p.ReadLine("Email: ")
	if err != nil {
		return err
	}
	code, err := p.ReadLine("Recovery code: ")
	if err != nil {
		return err
	}

	pass, err := p.ReadPassword("New password: ")
	if err != nil {
		return err
	}
	confirm, err := p.ReadPassword("Confirm new password: ")
	if err != nil {
		return err
	}
	if pass != confirm {
		return fmt.Errorf("%w: passwords do not match", account.ErrValidation)
	}

	_, err = store.UpdateProfile(email, account.ProfilePatch{
		NewPassword:  &pass,
		RecoveryCode: code,
	})
	if err != nil {
		return err
	}
	fmt.Println("Password updated. Log in with your new password.")
	return nil
}

// updateProfile authenticates first, then applies any combination of
// username and avatar changes. Blank answers keep the current value.
// Password changes go through the reset flow, which checks the
// recovery code.
func (p *Prompter) updateProfile(store *account.Store) (*account.Account, error) {
	acct, err := p.login(store)
	if err != nil {
		return nil, err
	}

	patch := account.ProfilePatch{}

	username, err := p.ReadLine(fmt.Sprintf("Username [%s]: ", acct.Username))
	if err != nil {
		return nil, err
	}
	if username != "" && username != acct.Username {
		patch.Username = &username
	}

	avatar, err := p.ReadLine("Avatar URL (blank keeps, \"-\" clears): ")
	if err != nil {
		return nil, err
	}
	switch avatar {
	case "":
	case "-":
		empty := ""
		patch.AvatarURL = &empty
	default:
		patch.AvatarURL = &avatar
	}

	if patch.Username == nil && patch.AvatarURL == nil {
		return acct, nil
	}

	updated, err := store.UpdateProfile(acct.Email, patch)
	if err != nil {
		return nil, err
	}
	fmt.Println("Profile updated.")
	fmt.Println()
	return updated, nil
}

// authErrorText maps store errors to terminal-friendly messages
// without leaking which field was wrong on a failed login.
func authErrorText(err error) string {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		return "Invalid credentials."
	case errors.Is(err, account.ErrRateLimited):
		return "Too many attempts. Wait a moment and try again."
	case errors.Is(err, account.ErrDuplicateEmail):
		return "That email is already registered."
	case errors.Is(err, account.ErrDuplicateUsername):
		return "That username is taken."
	case errors.Is(err, account.ErrInvalidRecoveryCode):
		return "Recovery code does not match."
	case errors.Is(err, account.ErrUserNotFound):
		return "No account with that email."
	case errors.Is(err, account.ErrValidation):
		return "Error: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}
