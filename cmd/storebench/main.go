package main

import (
	"github.com/armadaproject/storebench/cmd/storebench/cmd"
)

func main() {
	cmd.Execute()
}
