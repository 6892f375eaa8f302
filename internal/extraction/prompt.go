package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/DocScanAPI/internal/domain/documentModel"
)

// SystemInstruction is shared by the model-backed providers.
const SystemInstruction = `You read scanned identity cards, forms, receipts and letters.
Reply with a single JSON object and nothing else, shaped as:
{"document_type": string, "confidence": number between 0 and 1, "fields": {<field name>: <value>}}
Use the field names printed on the document, lower case with underscores. Keep values exactly as
printed. Nest related fields in objects when the document groups them. Never invent values; use
an empty string for fields that are unreadable.`

// BuildPrompt is the user turn that accompanies the files.
func BuildPrompt(opts Options, textLayer string) string {
	var sb strings.Builder
	if hint := strings.TrimSpace(opts.DocumentType); hint != "" && hint != documentModel.DocumentTypeAuto {
		fmt.Fprintf(&sb, "The document is a %s.\n", hint)
	} else {
		sb.WriteString("Detect the document type.\n")
	}
	sb.WriteString("Extract every field you can read.")
	if strings.TrimSpace(textLayer) != "" {
		sb.WriteString("\n\nText layer of the document:\n")
		sb.WriteString(textLayer)
	}
	return sb.String()
}

type modelReply struct {
	DocumentType string          `json:"document_type"`
	Confidence   *float64        `json:"confidence"`
	Fields       json.RawMessage `json:"fields"`
}

// ParseModelReply reads a model's JSON answer. Code fences are tolerated and
// fields may arrive as an object or as an encoded string; the normalizer deals
// with the latter.
func ParseModelReply(text string) (RawExtraction, error) {
	body := stripFences(text)
	if body == "" {
		return RawExtraction{}, errors.New("model returned an empty reply")
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return RawExtraction{}, fmt.Errorf("model reply is not JSON: %w", err)
	}
	if len(reply.Fields) == 0 || string(reply.Fields) == "null" {
		return RawExtraction{}, errors.New("model reply has no fields")
	}

	raw := RawExtraction{
		DocumentType: strings.TrimSpace(reply.DocumentType),
		Content:      reply.Fields,
	}
	if reply.Confidence != nil {
		c := clamp01(*reply.Confidence)
		raw.ConfidenceScore = &c
	}
	return raw, nil
}

func stripFences(text string) string {
	body := strings.TrimSpace(text)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the language tag
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
