package main

import "github.com/dimitrmo/cygaz/internal/cli"

func main() {
	cli.Execute()
}
