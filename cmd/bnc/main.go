package main

import "github.com/mcoot/bullscows/internal/cli"

func main() {
	cli.Execute()
}
