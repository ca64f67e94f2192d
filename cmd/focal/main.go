package main

import "focalai/internal/cli"

func main() {
	cli.Main()
}
