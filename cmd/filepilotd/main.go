// Command filepilotd runs the filepilot daemon using the default
// configuration lookup. It is equivalent to `filepilot run`.
package main

import (
	"context"
	"log"

	"filepilot/internal/config"
	"filepilot/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("filepilotd: %v", err)
	}
}
