package main

import (
	"coverarr/cmd"
)

func main() {
	cmd.Execute()
}
