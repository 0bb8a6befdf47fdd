package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Iron-Ham/chalbox/internal/cmd"
	"github.com/Iron-Ham/chalbox/internal/errors"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		// The failed panel has already been printed.
		if !errors.Is(err, cmd.ErrOperationFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
