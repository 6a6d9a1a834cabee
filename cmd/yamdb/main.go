package main

import "yamdb/cmd/yamdb/command"

func main() {
	command.Execute()
}
