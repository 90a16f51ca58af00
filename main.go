package main

import "github.com/kasuganosora/hearthquest/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
