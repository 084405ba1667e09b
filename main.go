package main

import (
	"os"

	"github.com/GoLoginSystem/GoLoginSystem/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
