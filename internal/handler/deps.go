package handler

import (
	"rainchat/internal/app/chat"
	"rainchat/internal/configs"
)

// AppDeps bundles the dependencies shared by the HTTP handlers.
type AppDeps struct {
	Hub    *chat.Hub
	Config *configs.AppConfig
}
