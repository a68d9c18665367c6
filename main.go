package main

import "github.com/stevehiehn/moinsy-setup/cmd"

func main() {
	cmd.Execute()
}
