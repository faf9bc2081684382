package main

import (
	"os"

	"github.com/ryos-web/ryos-memory/memoryservice"
)

func main() {
	if err := memoryservice.Run(); err != nil {
		os.Exit(1)
	}
}
