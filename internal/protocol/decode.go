package protocol

import (
	"strconv"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
)

// ParseInt decodes an integer result. "1" decodes to 1; anything that is not
// a decimal integer yields a DecodeError.
func ParseInt(text string) (int, error) {
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, &errors.DecodeError{Kind: string(KindInt), Value: text, Err: err}
	}

	return v, nil
}

// ParseBool decodes a boolean result. Only the exact text "true" is true;
// every other text, including "True" and "1", is false.
func ParseBool(text string) bool {
	return text == "true"
}
