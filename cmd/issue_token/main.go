package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"nutrivision/pkg/config"
	"nutrivision/pkg/devicetoken"
)

func main() {
	ttl := flag.Duration("ttl", 0, "token lifetime, e.g. 720h (0 = no expiry)")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("usage: go run ./cmd/issue_token [-ttl 720h] <device-name>")
		os.Exit(2)
	}
	config.LoadDotEnv(".env")
	secret := os.Getenv("DEVICE_TOKEN_SECRET")
	if strings.TrimSpace(secret) == "" {
		log.Fatal("DEVICE_TOKEN_SECRET not set in environment")
	}
	tok, err := devicetoken.Issue([]byte(secret), flag.Arg(0), *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	if *ttl > 0 {
		log.Printf("token for %s expires %s", flag.Arg(0), time.Now().Add(*ttl).Format(time.RFC3339))
	}
	fmt.Println(tok)
}
