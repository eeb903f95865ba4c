package main

import "github.com/roamplan/roamplan/cmd"

func main() {
	cmd.Execute()
}
