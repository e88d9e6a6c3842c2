package service

import "fmt"

const (
	textPromptRecipient     = "Please enter the ID of the person you want to message:"
	textPromptMessage       = "Please enter the message you want to send:"
	textPromptReply         = "Please enter your reply message:"
	textPromptHistoryTarget = "Please enter the ID of the person you want to see the history with:"

	textMessageSent     = "Your message has been sent anonymously!"
	textReplySent       = "Your reply has been sent anonymously!"
	textInvalidID       = "Invalid ID. Please check the ID and try again."
	textReplyFailed     = "Failed to send reply. Please try again."
	textDeliveryFailed  = "Your message was saved but could not be delivered right now. Please try again later."
	textNoHistory       = "No chat history found with the specified user ID."
	textHistoryHeader   = "Message history:"
	textCancelled       = "Operation cancelled."
	textNothingToCancel = "There is no operation to cancel."
	textMalformedID     = "That doesn't look like a valid ID. Please enter a numeric ID, or /cancel to stop."
	textSelfRecipient   = "You cannot send a message to yourself. Please enter another ID, or /cancel to stop."
	textEmptyBody       = "The message cannot be empty. Please type your message, or /cancel to stop."
	textNotRegistered   = "You are not registered yet. Use /register to get your anonymous ID."
	textIdleHint        = "Use /send to message someone anonymously or /history to read a conversation."
	textUnknownCommand  = "Unknown command. Available commands: /start, /register, /send, /history, /cancel."
	textInternalError   = "Something went wrong. Please try again later."

	prefixAnonymousMessage = "Anonymous message: "
	prefixReplyMessage     = "Reply to your anonymous message: "

	historyTimeLayout = "2006-01-02 15:04:05"
	// maxMessageLength es el límite de texto de un mensaje de Telegram.
	maxMessageLength = 4096
)

func textWelcome(label string) string {
	if label == "" {
		label = "there"
	}
	return fmt.Sprintf("Hi %s! Use /register to get your anonymous ID.", label)
}

func textBodyTooLong(limit int) string {
	return fmt.Sprintf("The message is too long. Please keep it to at most %d characters, or /cancel to stop.", limit)
}

func textRegistered(id int64, created bool) string {
	if created {
		return fmt.Sprintf("You have been registered. Your anonymous ID is %d.", id)
	}
	return fmt.Sprintf("You are already registered. Your ID is %d.", id)
}
