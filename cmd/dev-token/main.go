package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/service"
	"golang.org/x/term"
)

// dev-token mints a JWT the API accepts, for local testing without an
// identity provider.
func main() {
	userID := flag.Int("user", 0, "User ID to embed in the token")
	name := flag.String("name", "", "Display name")
	ttl := flag.Duration("ttl", 12*time.Hour, "Token lifetime")
	prompt := flag.Bool("prompt-secret", false, "Read the signing secret from the terminal instead of JWT_SECRET")
	flag.Parse()

	if *userID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -user must be a positive ID")
		os.Exit(2)
	}

	secret := config.Load().JWTSecret
	if *prompt {
		fmt.Fprint(os.Stderr, "Signing secret: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error reading secret:", err)
			os.Exit(1)
		}
		secret = strings.TrimSpace(string(raw))
	}
	if secret == "" {
		fmt.Fprintln(os.Stderr, "Error: empty signing secret")
		os.Exit(1)
	}

	token, err := service.NewTokenService(secret).Issue(*userID, *name, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error signing token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
