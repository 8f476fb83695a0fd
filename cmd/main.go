package main

import "github.com/volkshash/volkshash/cmd/cli"

func main() {
	cli.Execute()
}
