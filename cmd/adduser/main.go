// Command adduser registers a Spendly account from the terminal.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"spendly/internal/cli"
	"spendly/internal/log"
	"spendly/internal/services"
)

func main() {
	username := flag.String("username", "", "account username")
	email := flag.String("email", "", "account email")
	flag.Parse()

	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(nil)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg)

	in := bufio.NewReader(os.Stdin)
	if *username == "" {
		*username = prompt(in, "Username: ")
	}
	if *email == "" {
		*email = prompt(in, "Email: ")
	}

	password, err := readPassword(in)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	res := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	u, err := services.NewUserService(res.Store, logger).Register(ctx, *username, *email, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		_ = res.Cleanup()
		os.Exit(1)
	}
	fmt.Printf("Created user %q (id %d, %s)\n", u.Username, u.ID, u.Email)
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// readPassword asks twice without echo on a terminal and reads one line
// otherwise, so the command also works with piped input.
func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print("Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}
