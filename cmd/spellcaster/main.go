// Command spellcaster runs CORSIKA/CoREAS air shower simulation campaigns.
package main

import (
	"context"
	"os"

	"github.com/lguelzow/CoreasSpellcaster/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
