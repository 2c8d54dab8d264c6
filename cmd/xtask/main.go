package main

import (
	"os"

	"github.com/Nikerino/xtask/internal/cmd"
)

var version = "dev"

func main() {
	os.Exit(cmd.Execute(version))
}
