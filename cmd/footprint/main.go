package main

import "github.com/MeKo-Tech/footprint/cmd/footprint/cmd"

func main() {
	cmd.Execute()
}
