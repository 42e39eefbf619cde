// Package main is a development utility for seeding an API token directly in a local
// database. It prints the token value and a ready-to-run SQL INSERT so the public API can
// be exercised without signing in to the dashboard. Do not use seeded tokens in
// production; issue them through POST /api/v1/tokens instead.
//
//	go run ./scripts/generate-key.go <user-uuid> [name]
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/creavibe/creavibe/internal/tokens"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: %s <user-uuid> [name]", os.Args[0])
	}
	userID, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatalf("invalid user id: %v", err)
	}
	name := "dev token"
	if len(os.Args) > 2 {
		name = strings.Join(os.Args[2:], " ")
	}

	prefix := os.Getenv("CREAVIBE_TOKENS_PREFIX")
	if prefix == "" {
		prefix = tokens.DefaultPrefix
	}
	value := tokens.GenerateTokenValue(prefix)

	fmt.Println("==========================================================")
	fmt.Println("API Token Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nToken: %s\n", value)
	fmt.Println("\n==========================================================")
	fmt.Println("SQL Insert:")
	fmt.Println("==========================================================")
	fmt.Printf(`
INSERT INTO api_tokens (user_id, name, token)
VALUES ('%s', '%s', '%s');
`, userID, strings.ReplaceAll(name, "'", "''"), value)
	fmt.Println("\n==========================================================")
	fmt.Printf("Authorization Header: Bearer %s\n", value)
	fmt.Println("==========================================================")
}
