package main

import "github.com/Keccak1/gourme7-idea-frontend/cmd"

func main() {
	cmd.Execute()
}
