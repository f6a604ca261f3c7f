package wechat

import "regexp"

// patternRule is one regex fallback rule: on match, named capture groups
// become workflow params directly.
type patternRule struct {
	workflowName string
	re           *regexp.Regexp
}

// patternTable is consulted only when the classifier degraded to "simple"
// without a recoverable record (Parsed.Type empty), per §4.9 step 2's regex
// fallback. Each pattern captures the same fields the direct type mapping
// would have produced.
var patternTable = []patternRule{
	{WorkflowSendMessage, regexp.MustCompile(`给(?P<contact>[^\s,，]+)发(?:送)?(?:消息|微信)[说:：]?\s*(?P<message>.+)`)},
	{WorkflowSendMessage, regexp.MustCompile(`(?i)send\s+(?P<contact>\S+)\s+a\s+message\s+saying\s+(?P<message>.+)`)},
	{WorkflowPostMoments, regexp.MustCompile(`发(?:一条)?朋友圈[说:：]?\s*(?P<content>.+)`)},
	{WorkflowPostMoments, regexp.MustCompile(`(?i)post\s+(?:to\s+)?moments?\s+saying\s+(?P<content>.+)`)},
}

// matchPatterns walks the table in order, returning the first match's
// workflow name and extracted named-group params.
func matchPatterns(task string) (string, map[string]string, bool) {
	for _, rule := range patternTable {
		m := rule.re.FindStringSubmatch(task)
		if m == nil {
			continue
		}
		params := map[string]string{}
		for i, name := range rule.re.SubexpNames() {
			if i == 0 || name == "" {
				continue
			}
			params[name] = m[i]
		}
		if rule.workflowName == WorkflowPostMoments {
			params["postAction"] = "long_press"
		}
		return rule.workflowName, params, true
	}
	return "", nil, false
}
