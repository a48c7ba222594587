package main

import "gfa_index/cmd/gfaidx/cmd"

func main() {
	cmd.Execute()
}
