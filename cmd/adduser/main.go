package main

import (
	"bufio"   // Buffered stdin reading
	"flag"    // Command-line flags
	"fmt"     // Console prompts
	"os"      // Standard input
	"strings" // String manipulation

	"party_credits/internal/config" // Custom import path (Config)
	"party_credits/internal/db"     // Custom import path (Database)
	"party_credits/internal/domain" // Importing domain models
	"party_credits/internal/utils"  // Password hashing

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Offline provisioning tool: prompts for a username and password on the
// console and writes the hashed credential directly into the store. Not
// part of the served interface.
func main() {
	credits := flag.Int64("credits", -1, "starting balance (default: STARTING_CREDITS)")
	admin := flag.Bool("admin", false, "grant the admin role")
	flag.Parse()

	cfg := config.LoadConfig() // Load configuration
	if *credits < 0 {
		*credits = cfg.StartingCredits // Fall back to the configured default
	}

	// Database Source Name (DSN) for MySQL connection
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	gormDB, err := db.Open(dsn)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	reader := bufio.NewReader(os.Stdin) // Console input
	fmt.Print("Username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		logrus.Fatalf("failed to read username: %v", err)
	}
	fmt.Print("Password: ")
	password, err := reader.ReadString('\n')
	if err != nil {
		logrus.Fatalf("failed to read password: %v", err)
	}
	username = strings.ToLower(strings.TrimSpace(username)) // Normalize like the web surface
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		logrus.Fatal("username and password must not be empty")
	}

	hash, err := utils.HashPassword(password) // Hash the password
	if err != nil {
		logrus.Fatalf("failed to hash password: %v", err)
	}
	role := "user" // Default role
	if *admin {
		role = "admin" // Grant the admin role
	}
	account := domain.Account{
		Username: username, // Unique username
		Password: hash,     // Hashed credential
		Balance:  *credits, // Starting balance
		Role:     role,     // Account role
	}
	// Write directly to the store
	if err := gormDB.Create(&account).Error; err != nil {
		logrus.Fatalf("failed to create user: %v", err)
	}
	fmt.Println("User created successfully!")
}
