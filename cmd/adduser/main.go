package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"expensetracker/internal/cli"
	"expensetracker/internal/services"

	"golang.org/x/term"
)

func main() {
	username := flag.String("username", "", "login name")
	email := flag.String("email", "", "address due reminders are sent to")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	if *username == "" || *email == "" {
		fmt.Fprintln(os.Stderr, "usage: adduser -username NAME -email ADDRESS")
		os.Exit(2)
	}

	password, err := readPassword(os.Stdin, os.Stderr)
	if err != nil {
		logger.Error("Failed to read password", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	repo := cli.InitSQLite(ctx, logger, cfg)
	user, err := services.NewUserService(repo).Register(ctx, *username, *email, password)
	repo.Close()
	if err != nil {
		logger.Error("Failed to create user", "error", err, "username", *username)
		os.Exit(1)
	}
	logger.Info("User created", "user_id", user.ID, "username", user.Username)
	fmt.Printf("created user %d (%s)\n", user.ID, user.Username)
}

// readPassword prompts twice on a terminal. Piped input is read as a single
// line so the tool can be scripted.
func readPassword(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}

	fmt.Fprint(prompt, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	fmt.Fprint(prompt, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(prompt)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
