package main

import "HipHopLab/cmd"

func main() {
	cmd.Execute()
}
