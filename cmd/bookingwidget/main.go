package main

import "github.com/example/bookingwidget/internal/interfaces/cli"

func main() {
	cli.Execute()
}
