package main

import "github.com/endorses/lexfst/cmd"

func main() {
	cmd.Execute()
}
