package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/auth"
)

// devtoken mints an HS256 token the gateway accepts with the same JWT_SECRET,
// and optionally calls one gateway path with it.
func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		secret  = flag.String("secret", getenv("JWT_SECRET", "dev-secret"), "shared HS256 secret")
		user    = flag.String("user", getenv("DEV_USER_ID", ""), "subject (user id)")
		email   = flag.String("email", getenv("DEV_USER_EMAIL", ""), "email claim")
		role    = flag.String("role", getenv("DEV_USER_ROLE", "member"), "role claim")
		ttl     = flag.Duration("ttl", time.Hour, "token lifetime")
		probe   = flag.String("probe", "", "optional path to GET with the token, e.g. /api/v1/submissions")
	)
	flag.Parse()

	if strings.TrimSpace(*user) == "" {
		fatal("user is required")
	}
	if strings.TrimSpace(*secret) == "" {
		fatal("secret is required")
	}

	token, err := auth.SignHS256(auth.NewClaims(*user, *email, *role, *ttl), *secret)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Println(token)

	if *probe == "" {
		return
	}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(*baseURL, "/")+*probe, nil)
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Fprintf(os.Stderr, "status=%d\n", resp.StatusCode)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
