package main

import (
	"caseforge/cmd/handlers"
	"caseforge/internal/logger"
)

func main() {
	logger.Init() // Initialize the logger
	handlers.Execute()
}
