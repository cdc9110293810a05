// Command finbot-cli runs chat commands against the local database from a
// terminal, one line per command.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"finbot/internal/backend"
	"finbot/internal/bot"
	"finbot/internal/cli"
)

func main() {
	userID := flag.Int64("user", 1, "user id the commands run as")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer res.Cleanup()

	router := bot.NewRouter(res.Service)

	// a command given on the command line runs once
	if flag.NArg() > 0 {
		reply := router.Handle(ctx, *userID, strings.Join(flag.Args(), " "))
		fmt.Println(reply.Text)
		if !reply.OK {
			_ = res.Cleanup()
			os.Exit(1)
		}
		return
	}

	fmt.Printf("finbot as user %d, type help or press Ctrl-D to quit\n", *userID)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		fmt.Println(router.Handle(ctx, *userID, line).Text)
		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Failed to read input", "error", err)
	}
}
