// Command bloodlink runs the blood donor matching service.
//
//	bloodlink serve              start the HTTP API (default)
//	bloodlink migrate            create or update the schema
//	bloodlink match <request-id> print ranked candidates for a request
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("bloodlink failed")
		stop()
		os.Exit(1)
	}
}
