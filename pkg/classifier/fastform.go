package classifier

import "strings"

var sendMsgSynonyms = map[string]bool{
	"消息":      true,
	"发消息":     true,
	"xx":      true,
	"msg":     true,
	"message": true,
}

var momentSynonyms = map[string]bool{
	"朋友圈": true,
	"pyq": true,
}

// NormalizeUtterance trims whitespace and folds the full-width colon
// (U+FF1A) to ASCII ':' before any prefix detection, per the data model's
// Utterance normalization rule.
func NormalizeUtterance(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "：", ":")
	return s
}

// ParseFastForm parses the `ss:type:fields` grammar. It returns ok=false on
// any parse failure (missing prefix, too few fields), signaling the caller
// to fall through to the model path.
func ParseFastForm(raw string) (ParsedTask, bool) {
	normalized := NormalizeUtterance(raw)
	lower := strings.ToLower(normalized)
	if !strings.HasPrefix(lower, "ss:") {
		return ParsedTask{}, false
	}

	rest := normalized[len("ss:"):]
	parts := strings.Split(rest, ":")
	// Require at least two fields after the prefix (three parts total
	// including "ss"): a bare type/recipient keyword by itself is not
	// enough to build a send_msg or post_moment_only_text record.
	if len(parts) < 2 {
		return ParsedTask{}, false
	}

	head := strings.TrimSpace(parts[0])
	headLower := strings.ToLower(head)

	switch {
	case sendMsgSynonyms[headLower]:
		if len(parts) < 3 {
			return ParsedTask{}, false
		}
		recipient := strings.TrimSpace(parts[1])
		content := strings.TrimSpace(strings.Join(parts[2:], ":"))
		if recipient == "" || content == "" {
			return ParsedTask{}, false
		}
		return ParsedTask{Type: TaskSendMsg, Recipient: recipient, Content: content}, true

	case momentSynonyms[headLower]:
		content := strings.TrimSpace(strings.Join(parts[1:], ":"))
		if content == "" {
			return ParsedTask{}, false
		}
		return ParsedTask{Type: TaskPostMomentOnlyText, Content: content}, true

	default:
		// The first field doesn't name a recognized type keyword. Treat
		// the fixed-form shorthand `ss:<recipient>:<content>` as an
		// implicit send_msg — the common case of naming a contact
		// directly instead of spelling out a type synonym.
		recipient := head
		content := strings.TrimSpace(strings.Join(parts[1:], ":"))
		if recipient == "" || content == "" {
			return ParsedTask{}, false
		}
		return ParsedTask{Type: TaskSendMsg, Recipient: recipient, Content: content}, true
	}
}
