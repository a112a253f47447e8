package main

import "github.com/medsplain/medsplain/internal/cli"

func main() {
	cli.Execute()
}
