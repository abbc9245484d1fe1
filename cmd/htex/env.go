package main

import (
	"io"
	"log/slog"
	"os"

	htex "github.com/htexlab/go-htex"
)

// Environment holds injectable dependencies for testability: output
// streams, the logger, environment lookup and renderer construction.
type Environment struct {
	Stdout      io.Writer
	Stderr      io.Writer
	Logger      *slog.Logger
	LookupEnv   func(key string) (string, bool)
	NewRenderer func(opts ...htex.Option) Renderer
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Logger:    slog.Default(),
		LookupEnv: os.LookupEnv,
		NewRenderer: func(opts ...htex.Option) Renderer {
			return htex.New(opts...)
		},
	}
}
