package main

import "github.com/rail44/userdash/cmd"

func main() {
	cmd.Execute()
}
