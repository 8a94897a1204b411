package main

import (
	"github.com/j0lvera/pulsai/internal/assistant"
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/j0lvera/pulsai/internal/conversation"
	"github.com/j0lvera/pulsai/internal/db"
	"github.com/j0lvera/pulsai/internal/log"
	"github.com/j0lvera/pulsai/internal/server"
	"go.uber.org/fx"
)

func main() {

	fx.New(
		config.Module(),
		db.Module(),
		assistant.Module(),
		conversation.Module(),
		server.Module(),
		log.Module(),
	).Run()
}
