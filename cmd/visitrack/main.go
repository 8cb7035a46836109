package main

import "github.com/BrandonDHaskell/visitrack/internal/cli"

func main() {
	cli.Execute()
}
