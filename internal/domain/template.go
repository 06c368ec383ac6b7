package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// NameToken is replaced with the customer's display name when a message is rendered.
const NameToken = "{name}"

// MaxMessageLength is three concatenated SMS segments.
const MaxMessageLength = 480

var bracedToken = regexp.MustCompile(`\{[^{}]*\}`)

func ValidateMessageTemplate(tpl string) error {
	trimmed := strings.TrimSpace(tpl)
	if trimmed == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if n := len([]rune(trimmed)); n > MaxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters (got %d)", ErrValidation, MaxMessageLength, n)
	}
	for _, token := range bracedToken.FindAllString(trimmed, -1) {
		if token != NameToken {
			return fmt.Errorf("%w: unsupported template token %s", ErrValidation, token)
		}
	}
	return nil
}

// RenderMessage substitutes every {name} token.
func RenderMessage(tpl string, name string) string {
	return strings.ReplaceAll(tpl, NameToken, strings.TrimSpace(name))
}
