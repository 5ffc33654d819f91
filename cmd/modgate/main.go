// Package main is the entry point for modgate.
package main

import "github.com/joho/godotenv"

func main() {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	Execute()
}
