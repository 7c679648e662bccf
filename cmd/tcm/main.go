package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"

	"tcm/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args))
}
