package console

// Console prompt and command constants
const (
	CommandPrefix    = "/"
	PromptString     = "aleyya> "
	DefaultWrapWidth = 80
	MaskVisibleChars = 4
)

const helpText = `Type a message and press Enter to send it.

  /new             start a new conversation
  /model [key]     show or switch the model
  /models          list available models
  /history         print the conversation so far
  /attach <path>   attach an image to the next message
  /detach          drop the pending image
  /key <value>     save the OpenRouter API key (empty value clears it)
  /help            show this help
  /quit            leave`
