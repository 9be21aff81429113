package main

import "github.com/nfrund/tavern/cmd/tavern-cli/cmd"

func main() {
	cmd.Execute()
}
