package main

import "github.com/CosmoTheDev/repogate/cmd"

func main() {
	cmd.Execute()
}
