package main

import "github.com/biograph-io/nodenorm/internal/interfaces/cli"

func main() {
	cli.Execute()
}
