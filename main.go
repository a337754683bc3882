package main

import "linehist/cmd"

func main() {
	cmd.Execute()
}
