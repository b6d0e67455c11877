// Command tokengen mints application and admin tokens signed with JWT_SECRET
// for operating the password endpoints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/auth"
	"github.com/Cantara/Whydah-UserIdentityBackend-sub000/internal/models"
	"github.com/joho/godotenv"
)

func main() {
	tokenType := flag.String("type", models.TokenTypeApplication, "token type: application or user")
	subject := flag.String("sub", "", "token subject (application or user id)")
	admin := flag.Bool("admin", false, "grant the admin role (user tokens only)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is required")
		os.Exit(1)
	}
	if *subject == "" {
		fmt.Fprintln(os.Stderr, "-sub is required")
		os.Exit(2)
	}
	if *tokenType != models.TokenTypeApplication && *tokenType != models.TokenTypeUser {
		fmt.Fprintf(os.Stderr, "unknown token type %q\n", *tokenType)
		os.Exit(2)
	}

	role := ""
	if *admin {
		role = models.RoleAdmin
	}

	token, err := auth.NewTokenManager(secret, *ttl).GenerateToken(*tokenType, *subject, role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
