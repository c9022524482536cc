// Command makeadmin promotes an existing account to the admin role. Role
// changes only happen through this tool; no API route can touch roles.
//
// Usage: makeadmin user@example.com
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/infrastructure/config"
	"github.com/rackcentre/incident-logger/internal/infrastructure/db/mongo"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: makeadmin <email>")
		os.Exit(2)
	}
	email := strings.ToLower(strings.TrimSpace(os.Args[1]))

	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "mongodb connection failed: %v\n", err)
		os.Exit(1)
	}
	defer client.Disconnect(ctx)

	users := mongo.NewUserRepository(db)

	user, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			fmt.Fprintf(os.Stderr, "no user with email %s\n", email)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "lookup failed: %v\n", err)
		os.Exit(1)
	}

	if user.IsAdmin() {
		fmt.Printf("%s is already an admin\n", email)
		return
	}

	if err := users.UpdateRole(ctx, user.ID, domain.RoleAdmin); err != nil {
		fmt.Fprintf(os.Stderr, "promotion failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("promoted %s (%s) to admin\n", user.Name, email)
	fmt.Println("note: an existing session token keeps its old role until the user logs in again")
}
