package main

import "github.com/KaramelBytes/trialclean-cli/cmd"

func main() {
	cmd.Execute()
}
