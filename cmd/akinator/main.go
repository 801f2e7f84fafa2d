package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/talkinator/internal/adapter/guessapi"
	"github.com/seu-repo/talkinator/internal/domain"
	"github.com/seu-repo/talkinator/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/talkinator/internal/service/console"
	"github.com/seu-repo/talkinator/internal/service/guess"
)

const usage = "use: akinator <name> <age> <gender> [language (en|es|pt)]"

var (
	baseURL = flag.String("base-url", "", "Guessing service URL (defaults to the per-language host)")
	timeout = flag.Duration("timeout", 15*time.Second, "Timeout of each remote request")
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Usage = func() { fmt.Println(usage) }
	flag.Parse()

	profile, err := parseProfile(flag.Args())
	if err != nil {
		fmt.Println(err)
		os.Exit(0)
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := circuitbreaker.NewHTTPClientWithSettings(*timeout, circuitbreaker.DefaultSettings("guess-api"), logger)
	client := guessapi.NewClient(guessapi.Config{BaseURL: *baseURL}, httpClient, logger)

	game := console.NewGame(guess.NewSession(client, logger), os.Stdin, os.Stdout, logger)
	if err := game.Play(ctx, profile); err != nil && !errors.Is(err, context.Canceled) {
		os.Exit(1)
	}
}

// parseProfile validates the command line the same way for every failure:
// a message on stdout and a clean exit.
func parseProfile(args []string) (domain.Profile, error) {
	if len(args) < 3 {
		return domain.Profile{}, errors.New(usage)
	}

	age, err := strconv.Atoi(args[1])
	if err != nil {
		return domain.Profile{}, errors.New(usage)
	}

	profile := domain.Profile{
		Name:     args[0],
		Age:      age,
		Gender:   domain.Gender(strings.ToUpper(args[2])),
		Language: "en",
	}
	if len(args) > 3 {
		profile.Language = args[3]
	}

	if err := profile.Validate(); err != nil {
		return domain.Profile{}, fmt.Errorf("oops! %w", err)
	}
	return profile, nil
}
