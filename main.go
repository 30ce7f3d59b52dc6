package main

import "github.com/waynecorp/project-registry/cmd"

func main() {
	cmd.Execute()
}
