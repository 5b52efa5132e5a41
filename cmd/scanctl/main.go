package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resumematch/scanner-web/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", services.Friendly(err, ""))
		os.Exit(1)
	}
}
