package main

import "github.com/CHOSENX-GPU/AutoExSim-CFX/cmd"

func main() {
	cmd.Execute()
}
