package main

import (
	"github.com/j0lvera/pulsai/internal/ai"
	"github.com/j0lvera/pulsai/internal/bot"
	"github.com/j0lvera/pulsai/internal/config"
	"github.com/j0lvera/pulsai/internal/log"
	"go.uber.org/fx"
)

func main() {

	fx.New(
		config.Module(),
		ai.Module(),
		bot.Module(),
		log.Module(),
	).Run()
}
