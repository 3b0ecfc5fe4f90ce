package main

import (
	"fmt"
	"os"

	"github.com/eduinstitute/liveclass-server/internal/util"
)

// Prints a bcrypt hash for ADMIN_TOKEN_HASH. Without an argument a random
// token is generated and printed first.
func main() {
	token := ""
	switch len(os.Args) {
	case 1:
		generated, err := util.GenerateToken()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token = generated
		fmt.Printf("token: %s\n", token)
	case 2:
		token = os.Args[1]
	default:
		fmt.Fprintf(os.Stderr, "Usage: go run ./cmd/hash-token [token]\n")
		os.Exit(1)
	}

	hash, err := util.BcryptToken(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
