package main

import (
	"github.com/joho/godotenv"

	"github.com/mvp-joe/typedsql/internal/cli"
)

func main() {
	// A missing .env is fine; TYPEDSQL_* variables may come from the shell.
	_ = godotenv.Load()

	cli.Execute()
}
