package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/vault"
)

// MaxLoginAttempts bounds the password prompts of one login command.
const MaxLoginAttempts = 3

// getSimpleText is an indirection used to facilitate testing.
var getSimpleText = GetSimpleText

// readNewPassword asks for a new master password twice and enforces the
// minimum length.
func (a *App) readNewPassword(prompt string) ([]byte, error) {
	pw, err := a.readSecret(prompt)
	if err != nil {
		return nil, err
	}
	if len(pw) < vault.MinMasterPasswordLength {
		common.WipeByteArray(pw)
		a.printf("Password must be at least %d characters long.\n", vault.MinMasterPasswordLength)
		return nil, errCanceled
	}

	confirm, err := a.readSecret("Confirm password")
	if err != nil {
		common.WipeByteArray(pw)
		return nil, err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		common.WipeByteArray(pw)
		a.println("Passwords do not match.")
		return nil, errCanceled
	}
	return pw, nil
}

// Register prompts for a username and a confirmed master password and
// creates the account. It does not log in.
func (a *App) Register(ctx context.Context, args []string) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := a.readNewPassword("Enter master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.vault.Register(ctx, username, password); err != nil {
		if errors.Is(err, common.ErrConflict) {
			a.println("This username is already taken.")
			return errCanceled
		}
		return err
	}

	a.println("Account created. You can log in now.")
	return nil
}

// Login prompts for credentials, allowing up to MaxLoginAttempts password
// tries. A username given as the first argument skips the username prompt.
func (a *App) Login(ctx context.Context, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		var err error
		if username, err = getSimpleText(a.reader, "Enter username", a.out); err != nil {
			return err
		}
	}

	for attempt := 1; attempt <= MaxLoginAttempts; attempt++ {
		password, err := a.readSecret("Enter master password")
		if err != nil {
			return err
		}
		err = a.vault.Authenticate(ctx, username, password)
		common.WipeByteArray(password)

		if err == nil {
			a.printf("Welcome, %s!\n", username)
			return nil
		}
		if !errors.Is(err, common.ErrAuthentication) {
			return err
		}

		if left := MaxLoginAttempts - attempt; left > 0 {
			a.printf("Invalid username or password. %d attempt(s) left.\n", left)
		}
	}

	a.println("Too many failed attempts.")
	a.log.Warn(ctx, "login attempts exhausted", "user", username)
	return errCanceled
}

// Logout ends the session and wipes the key.
func (a *App) Logout(ctx context.Context, args []string) error {
	a.vault.Logout(ctx)
	a.println("Logged out.")
	return nil
}

// ChangePassword rotates the master password after asking for the current
// one and a confirmed new one.
func (a *App) ChangePassword(ctx context.Context, args []string) error {
	oldPassword, err := a.readSecret("Enter current master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPassword)

	newPassword, err := a.readNewPassword("Enter new master password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPassword)

	if err := a.vault.ChangeMasterPassword(ctx, oldPassword, newPassword); err != nil {
		if errors.Is(err, common.ErrAuthentication) {
			a.println("Current master password is incorrect.")
			return errCanceled
		}
		return fmt.Errorf("password change failed: %w", err)
	}

	a.println("Master password changed. All entries were re-encrypted.")
	return nil
}
