// Command maasser-token mints a bearer token for local development.
//
//	JWT_SECRET=... maasser-token -sub user-42 -ttl 24h
//
// Without JWT_SECRET the secret is read from the terminal.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"maasser/internal/auth"
)

func main() {
	subject := flag.String("sub", "", "scope identifier (token subject)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token validity")
	flag.Parse()

	secret, err := loadSecret()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	token, err := auth.GenerateToken(strings.TrimSpace(*subject), secret, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}

func loadSecret() ([]byte, error) {
	if s := os.Getenv("JWT_SECRET"); s != "" {
		return []byte(s), nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("JWT_SECRET is not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "JWT secret: ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read secret: %w", err)
	}
	if len(secret) == 0 {
		return nil, errors.New("empty secret")
	}
	return secret, nil
}
