package main

import "github.com/scienceol/powerwatch/cmd"

func main() {
	cmd.Execute()
}
