package main

import "github.com/YassineZAIBI/virtual-ppo-ppm/cmd"

func main() {
	cmd.Execute()
}
