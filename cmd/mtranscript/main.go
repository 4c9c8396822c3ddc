package main

import (
	"github.com/emiliopalmerini/mtranscript/internal/cli"
)

func main() {
	cli.Execute()
}
