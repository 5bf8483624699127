package main

import "vidforge/internal/cli"

func main() {
	cli.Execute()
}
