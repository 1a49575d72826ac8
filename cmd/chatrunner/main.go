package main

import (
	"context"
	"os"

	"chatrunner/internal/app"
)

func main() {
	os.Exit(app.Main(context.Background(), os.Stdout, os.Stderr))
}
