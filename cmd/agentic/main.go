package main

import "github.com/agentic-project/agentic/internal/cli"

func main() {
	cli.Execute()
}
