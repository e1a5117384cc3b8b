package main

import "github.com/atlashq/atlas-go/cmd/atlas/cmd"

func main() {
	cmd.Execute()
}
