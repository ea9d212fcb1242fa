package main

import "github.com/ppiankov/vaultguard/internal/cli"

func main() {
	cli.Execute()
}
