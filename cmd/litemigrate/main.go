package main

import "github.com/dbsmedya/litemigrate/cmd/litemigrate/cmd"

func main() {
	cmd.Execute()
}
