package main

import "github.com/pfrederiksen/connpass-attendees/internal/cli"

func main() {
	cli.Execute()
}
