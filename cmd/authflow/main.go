package main

import (
	"errors"
	"log"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-auth-flow/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running auth flow: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load() // .env is optional

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if c.GetEnv() == "DEV" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	app, err := newApp(c, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	return app.Run()
}

func displayAppname(appName string) {
	myFigure := figure.NewFigure(appName, "", true)
	myFigure.Print()
}
