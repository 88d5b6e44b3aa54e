package main

import "setupclojure/internal/cli"

func main() {
	cli.Execute()
}
