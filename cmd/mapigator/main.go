package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mapigator/internal/app"
	"mapigator/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd()
	cmd.SetArgs(normalizeArgs(cmd, os.Args[1:]))
	err := cmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, shared.ErrMissingAPIKey):
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	case errors.Is(err, app.ErrNoPlaces):
		fmt.Fprintln(os.Stderr, "No places found.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}
