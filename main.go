package main

import "github.com/alizand/leadwire/cmd"

func main() {
	cmd.Execute()
}
