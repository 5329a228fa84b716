package main

import "github.com/twiced-technology-gmbh/keepbrief/cmd"

func main() {
	cmd.Execute()
}
