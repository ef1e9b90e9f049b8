package main

import (
	"context"
	"os"

	"github.com/conduit-lang/metacore/internal/cli/commands"
	"github.com/conduit-lang/metacore/internal/extension/diagram"
)

func main() {
	if err := commands.Execute(context.Background(), diagram.Extension{}); err != nil {
		os.Exit(1)
	}
}
