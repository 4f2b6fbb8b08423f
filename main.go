package main

import (
	"os"

	"github.com/GoUserPanel/GoUserPanel/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
