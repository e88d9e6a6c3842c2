package service

import "anon-relay/internal/transport"

const (
	CommandStart    = "start"
	CommandRegister = "register"
	CommandSend     = "send"
	CommandHistory  = "history"
	CommandCancel   = "cancel"
)

// BotCommands es la lista publicada en el transporte al arrancar.
func BotCommands() []transport.Command {
	return []transport.Command{
		{Name: CommandStart, Description: "Start the bot"},
		{Name: CommandRegister, Description: "Register and get your anonymous ID"},
		{Name: CommandSend, Description: "Send an anonymous message"},
		{Name: CommandHistory, Description: "Get the message history with a user"},
		{Name: CommandCancel, Description: "Cancel the current operation"},
	}
}
