package main

import "github.com/jmhart/storyarc/internal/cli"

func main() {
	cli.Execute()
}
