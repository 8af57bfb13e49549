package main

import (
	jwtPkg "DrowsinessMonitor/pkg/jwt"
	"flag"
	"fmt"
	"github.com/joho/godotenv"
	"os"
	"time"
)

// token mints an operator access token for devices and dispatch consoles.
func main() {
	id := flag.String("id", "", "operator id")
	name := flag.String("name", "", "operator name")
	fleet := flag.String("fleet", "", "fleet the operator belongs to")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	if *id == "" || *name == "" {
		fmt.Fprintln(os.Stderr, "usage: token -id <operator id> -name <operator name> [-fleet <fleet>] [-ttl 24h]")
		os.Exit(2)
	}

	claims := map[string]interface{}{
		"id":   *id,
		"name": *name,
	}
	if *fleet != "" {
		claims["fleet"] = *fleet
	}

	token, expiresAt, err := jwtPkg.Sign(claims, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", time.Unix(expiresAt, 0).Format(time.RFC3339))
}
