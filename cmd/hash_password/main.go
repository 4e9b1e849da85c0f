package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/util"
)

// Generates a bcrypt hash suitable for the ADMIN_PASSWORD environment
// variable, so the admin password does not have to live in plain text.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <password>\n", os.Args[0])
		os.Exit(2)
	}

	hash, err := util.HashPassword(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	fmt.Println(hash)
	fmt.Println("Set this value as ADMIN_PASSWORD.")
}
