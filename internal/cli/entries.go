package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/vault"
)

// weakPasswordLength is the length below which a manual entry password
// triggers a warning.
const weakPasswordLength = 8

const displayTimeLayout = "2006-01-02 15:04"

// domainArg returns args[0] or asks for a domain.
func (a *App) domainArg(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, a.out)
}

// readEntryPassword asks whether to generate a password. A nil result means
// "generate". Short manual passwords need an extra confirmation.
func (a *App) readEntryPassword() (*string, error) {
	generate, err := Confirm(a.reader, "Generate a strong password?", a.out)
	if err != nil {
		return nil, err
	}
	if generate {
		return nil, nil
	}

	pw, err := a.readSecret("Enter password")
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pw)

	if len(pw) < weakPasswordLength {
		a.printf("Warning: password is shorter than %d characters.\n", weakPasswordLength)
		ok, err := Confirm(a.reader, "Use it anyway?", a.out)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errCanceled
		}
	}

	s := string(pw)
	return &s, nil
}

// List prints every domain of the session user with its login name.
func (a *App) List(ctx context.Context, args []string) error {
	domains, err := a.vault.ListDomains(ctx)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		a.println("No passwords stored.")
		return nil
	}

	for _, d := range domains {
		c, err := a.vault.GetEntry(ctx, d)
		switch {
		case errors.Is(err, common.ErrNotFound):
			a.printf("  %s  [unreadable]\n", d)
		case err != nil:
			return err
		case c.Username != nil:
			a.printf("  %s  (%s)\n", d, *c.Username)
		default:
			a.printf("  %s\n", d)
		}
	}
	a.printf("%d entries.\n", len(domains))
	return nil
}

// Add prompts for a new entry.
func (a *App) Add(ctx context.Context, args []string) error {
	domain, err := a.domainArg(args, "Enter domain")
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username (optional)", a.out)
	if err != nil {
		return err
	}
	notes, err := getSimpleText(a.reader, "Enter notes (optional)", a.out)
	if err != nil {
		return err
	}
	password, err := a.readEntryPassword()
	if err != nil {
		return err
	}

	stored, err := a.vault.AddEntry(ctx, vault.EntryInput{
		Domain:   domain,
		Password: password,
		Username: models.StringPtr(username),
		Notes:    models.StringPtr(notes),
	})
	if err != nil {
		return err
	}

	if password == nil {
		a.printf("Generated password: %s\n", stored)
	}
	a.printf("Saved %s.\n", domain)
	return nil
}

// Show decrypts and prints one entry.
func (a *App) Show(ctx context.Context, args []string) error {
	domain, err := a.domainArg(args, "Enter domain")
	if err != nil {
		return err
	}

	c, err := a.vault.GetEntry(ctx, domain)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			a.printf("No password found for %s.\n", domain)
			return errCanceled
		}
		return err
	}

	a.printf("Domain:   %s\n", c.Domain)
	if c.Username != nil {
		a.printf("Username: %s\n", *c.Username)
	}
	a.printf("Password: %s\n", c.Password)
	if c.Notes != nil {
		a.printf("Notes:    %s\n", *c.Notes)
	}
	a.printf("Created:  %s\n", formatTime(c.CreatedAt))
	a.printf("Updated:  %s\n", formatTime(c.UpdatedAt))
	return nil
}

// Update replaces the password of an existing entry.
func (a *App) Update(ctx context.Context, args []string) error {
	domain, err := a.domainArg(args, "Enter domain to update")
	if err != nil {
		return err
	}
	password, err := a.readEntryPassword()
	if err != nil {
		return err
	}

	stored, err := a.vault.UpdateEntry(ctx, domain, password)
	if err != nil {
		return err
	}

	if password == nil {
		a.printf("Generated password: %s\n", stored)
	}
	a.printf("Updated %s.\n", domain)
	return nil
}

// Delete removes an entry after the user types "yes".
func (a *App) Delete(ctx context.Context, args []string) error {
	domain, err := a.domainArg(args, "Enter domain to delete")
	if err != nil {
		return err
	}

	answer, err := getSimpleText(a.reader, "Type 'yes' to delete "+domain, a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		a.println("Deletion canceled.")
		return errCanceled
	}

	if err := a.vault.DeleteEntry(ctx, domain); err != nil {
		return err
	}
	a.printf("Deleted %s.\n", domain)
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format(displayTimeLayout)
}
