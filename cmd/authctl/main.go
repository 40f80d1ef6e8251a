package main

import "github.com/pilab-dev/shadow-auth/cmd/authctl/cmd"

func main() {
	cmd.Execute()
}
