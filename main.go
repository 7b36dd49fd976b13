package main

import "github.com/maxlab/magnetpanel/cmd"

func main() {
	cmd.Execute()
}
