package main

import "github.com/I85YL64/n6/cmd/n6ca/cmd"

func main() {
	cmd.Execute()
}
