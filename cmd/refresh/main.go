package main

import "github.com/lightforgemedia/go-refresh/internal/cli"

func main() {
	cli.Execute()
}
