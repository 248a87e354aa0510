package classifier

import (
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/vasu-ramanujam/teriyaki-chasers/internal/errors"
	"github.com/vasu-ramanujam/teriyaki-chasers/internal/logger"
)

// parseCompletion extracts choices[0].message.content from a chat-completions
// body. Any other shape is an upstream protocol violation.
func parseCompletion(body []byte) (string, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return "", malformedResponse(body, "response is not a JSON object", err)
	}

	choices, err := obj.GetObjectArray("choices")
	if err != nil {
		return "", malformedResponse(body, "response has no choices array", err)
	}
	if len(choices) == 0 {
		return "", malformedResponse(body, "response has an empty choices array", nil)
	}

	content, err := choices[0].GetString("message", "content")
	if err != nil {
		return "", malformedResponse(body, "first choice has no message content", err)
	}

	return content, nil
}

func malformedResponse(body []byte, reason string, cause error) error {
	b := errors.Newf("malformed inference response: %s", reason).
		Component(componentName).
		Category(errors.CategoryUpstream).
		Context("operation", "parse_completion").
		Context("response_body", logger.RedactSensitiveData(logger.Truncate(string(body), maxErrorBodyBytes)))
	if cause != nil {
		b = b.Context("cause", cause.Error())
	}
	return b.Build()
}

// labelQuotes are stripped from both ends of a completion
const labelQuotes = "\"'`“”‘’"

// normalizeLabel trims the completion to a bare label. A case-insensitive
// match of the sentinel is returned as Sentinel itself.
func normalizeLabel(content string) (string, error) {
	label := strings.Join(strings.Fields(content), " ")
	label = strings.Trim(label, labelQuotes)
	label = strings.TrimSuffix(label, ".")
	label = strings.TrimSpace(strings.Trim(label, labelQuotes))

	if label == "" {
		return "", errors.Newf("inference model returned an empty label").
			Component(componentName).
			Category(errors.CategoryUpstream).
			Context("operation", "normalize_label").
			Context("raw_length", len(content)).
			Build()
	}

	if strings.EqualFold(label, Sentinel) {
		return Sentinel, nil
	}
	return label, nil
}
