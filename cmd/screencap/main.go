package main

import "github.com/bryanchriswhite/screencap/cmd/screencap/commands"

func main() {
	commands.Execute()
}
