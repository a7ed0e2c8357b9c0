package main

import "github.com/deploymenttheory/go-msi/cmd"

func main() {
	cmd.Execute()
}
