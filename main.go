package main

import "github.com/K0NGR3SS/ghostprobe/commands"

func main() {
	commands.Execute()
}
