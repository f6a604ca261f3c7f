package classifier

import "strings"

// connectiveWords is the closed list of connective words whose presence
// marks an utterance as describing a multi-step ("complex") task rather
// than a single simple action.
var connectiveWords = []string{
	"然后", "接着", "再", "并且", "之后", "完成后",
	"then", "after that", "next", "and then",
}

// actionWords is a broad, non-exhaustive list of verbs the regex degrade
// classifier counts occurrences of; two or more distinct hits is also
// treated as a signal of a multi-step task.
var actionWords = []string{
	"发送", "打开", "点击", "输入", "搜索", "发布", "回复", "删除",
	"send", "open", "tap", "click", "type", "search", "post", "reply", "delete",
}

// ClassifyRegexClass is the degrade classifier used when the model path
// errors. It only disambiguates complex vs. simple — it does not attempt to
// recover recipient/content, since a closed word list cannot reliably parse
// free text. A "simple" verdict with no parsed record is exactly the case
// C9's per-handler regex pattern table exists to resolve.
func ClassifyRegexClass(utterance string) TaskClass {
	lower := strings.ToLower(strings.TrimSpace(utterance))

	if containsAny(lower, connectiveWords) {
		return ClassComplex
	}
	if countDistinctHits(lower, actionWords) >= 2 {
		return ClassComplex
	}
	return ClassSimple
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func countDistinctHits(haystack string, needles []string) int {
	count := 0
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			count++
		}
	}
	return count
}
