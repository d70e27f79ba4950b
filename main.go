package main

import (
	"github/passlet/go-wallet/cmd"
)

func main() {
	cmd.Execute()
}
