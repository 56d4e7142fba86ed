package main

import "github.com/flint-note/flint-note/internal/cli"

func main() {
	cli.Execute()
}
