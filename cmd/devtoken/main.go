// Command devtoken mints an access token shaped like the identity
// provider's for calling the API locally:
//
//	go run ./cmd/devtoken -user user_1 -role ADMIN
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (defaults to JWT_SECRET)")
	user := flag.String("user", "", "user id placed in the sub claim")
	role := flag.String("role", middleware.RoleUser, "role claim: USER or ADMIN")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *role != middleware.RoleUser && *role != middleware.RoleAdmin {
		logrus.Fatalf("unknown role %q", *role)
	}
	tok, err := utils.NewAccessToken(*secret, *user, *role, *ttl)
	if err != nil {
		logrus.WithError(err).Fatal("mint token")
	}
	fmt.Println(tok.Token)
}
