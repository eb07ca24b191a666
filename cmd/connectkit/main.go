package main

import (
	"fmt"
	"os"

	"github.com/blackwell-systems/connectkit/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		if code := app.ExitCode(err); code != 0 {
			os.Exit(code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
