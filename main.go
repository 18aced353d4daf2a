package main

import (
	"log"

	"github.com/anoixa/story-overlay/cmd"
	"github.com/anoixa/story-overlay/config"
)

func main() {
	log.Printf("story overlay %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
