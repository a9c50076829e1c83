package main

import "github.com/simetry/simetry-go/cmd"

func main() {
	cmd.Execute()
}
