package main

import "github.com/mcoot/partycoord/internal/cli"

func main() {
	cli.Execute()
}
