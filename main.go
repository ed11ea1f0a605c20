package main

import "classportal/cmd"

func main() {
	cmd.Execute()
}
