package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/fixlinkhq/fixlink/internal/db"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote")
	super := flag.Bool("super", false, "Promote to superadmin instead of admin")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run cmd/adminutil/promote_admin/main.go -email user@example.com [-super]")
	}

	_ = godotenv.Load()
	db.Init()

	role := "admin"
	if *super {
		role = "superadmin"
	}

	ct, err := db.Conn.Exec(context.Background(),
		`UPDATE users SET role = $1 WHERE email = $2`, role, *email)
	if err != nil {
		log.Fatalf("failed to promote user: %v", err)
	}
	if ct.RowsAffected() == 0 {
		log.Fatalf("no user found with email: %s", *email)
	}

	fmt.Printf("User %s promoted to %s.\n", *email, role)
}
