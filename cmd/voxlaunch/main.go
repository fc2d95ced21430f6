package main

import (
	"os"

	"voxlaunch/internal/cli"
)

func main() { os.Exit(cli.Main()) }
