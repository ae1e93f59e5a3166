package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/safekeeper/internal/common"
	"github.com/dmitrijs2005/safekeeper/internal/logging"
	"github.com/dmitrijs2005/safekeeper/internal/models"
	"github.com/dmitrijs2005/safekeeper/internal/passgen"
	"github.com/dmitrijs2005/safekeeper/internal/vault"
	"golang.org/x/term"
)

// Vault is the surface of *vault.Manager used by the console.
type Vault interface {
	Authenticate(ctx context.Context, username string, password []byte) error
	Logout(ctx context.Context)
	CurrentUser() string
	LoggedIn() bool
	Register(ctx context.Context, username string, password []byte) error
	GeneratePassword(length int, classes passgen.Classes) (string, error)
	ListDomains(ctx context.Context) ([]string, error)
	AddEntry(ctx context.Context, in vault.EntryInput) (string, error)
	GetEntry(ctx context.Context, domain string) (*models.Credential, error)
	UpdateEntry(ctx context.Context, domain string, password *string) (string, error)
	DeleteEntry(ctx context.Context, domain string) error
	ChangeMasterPassword(ctx context.Context, oldPassword, newPassword []byte) error
	RecentLogs(limit int) ([]string, error)
}

// App holds the console state.
type App struct {
	vault  Vault
	reader *bufio.Reader
	out    io.Writer
	log    logging.Logger

	// readSecret reads a password. It does not echo when input is a terminal.
	readSecret func(prompt string) ([]byte, error)
}

// NewApp builds an App reading commands from in and writing to out.
func NewApp(v Vault, in io.Reader, out io.Writer, log logging.Logger) *App {
	a := &App{
		vault:  v,
		reader: bufio.NewReader(in),
		out:    out,
		log:    log,
	}
	a.readSecret = a.readSecretLine
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		a.readSecret = func(prompt string) ([]byte, error) {
			return GetPassword(fd, prompt, out)
		}
	}
	return a
}

func (a *App) readSecretLine(prompt string) ([]byte, error) {
	s, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (a *App) isLoggedIn() bool {
	return a.vault.LoggedIn()
}

func (a *App) status() string {
	if u := a.vault.CurrentUser(); u != "" {
		return "(" + u + ")"
	}
	return ""
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Run prints a greeting and serves commands until exit or end of input. Any
// active session is logged out on return.
func (a *App) Run(ctx context.Context) {
	defer a.vault.Logout(ctx)

	a.println("Welcome to SafeKeeper (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)
}

// describe turns an error into a message for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrAuthentication):
		return "Invalid username or password."
	case errors.Is(err, common.ErrNoSession):
		return "Please log in first."
	case errors.Is(err, common.ErrConflict):
		return "An entry for this domain already exists."
	case errors.Is(err, common.ErrIntegrity):
		return "An entry could not be decrypted; nothing was changed."
	case errors.Is(err, common.ErrNotFound):
		return "Not found."
	default:
		return "Error: " + err.Error()
	}
}
