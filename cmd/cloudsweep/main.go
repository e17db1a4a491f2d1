package main

import "github.com/DrSkyle/cloudsweep/cmd/cloudsweep/commands"

func main() {
	commands.Execute()
}
