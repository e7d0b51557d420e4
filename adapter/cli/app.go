package cli

import (
	"errors"

	"github.com/sledgehq/sledge/internal/app"
)

// ErrNoApp is returned by commands that need a database when none is
// configured.
var ErrNoApp = errors.New("command requires a database connection")

// App holds the CLI application dependencies.
type App struct {
	Container *app.Container
}

// NewApp creates a CLI application around a wired container.
func NewApp(container *app.Container) *App {
	return &App{Container: container}
}

// cliApp is the global CLI application instance
var cliApp *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	cliApp = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return cliApp
}

// RequireApp returns the wired container or ErrNoApp.
func RequireApp() (*app.Container, error) {
	if cliApp == nil || cliApp.Container == nil {
		return nil, ErrNoApp
	}
	return cliApp.Container, nil
}
