package main

import (
	"github.com/corvid-labs/quill/internal/server"
	"github.com/corvid-labs/quill/internal/util"
	"github.com/corvid-labs/quill/pkg/logger"
	"github.com/corvid-labs/quill/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
