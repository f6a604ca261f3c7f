// Package classifier implements the task classifier (C5): a zero-cost
// fast-form grammar parser, a model-backed JSON classifier, and a regex
// degrade classifier used when the model path is unavailable.
package classifier

// TaskType enumerates the recognized parsed-task types. The set is
// extensible; "others" and "invalid" are always present.
type TaskType string

const (
	TaskSendMsg            TaskType = "send_msg"
	TaskPostMomentOnlyText TaskType = "post_moment_only_text"
	TaskOthers             TaskType = "others"
	TaskInvalid            TaskType = "invalid"
)

// ParsedTask is the classifier's output record. Empty fields are permitted:
// the fast-form grammar never sets Recipient for post_moment_only_text, and
// the model path passes through whatever recipient the model returned.
type ParsedTask struct {
	Type      TaskType
	Recipient string
	Content   string
}

// TaskClass buckets a ParsedTask.Type for routing purposes.
type TaskClass string

const (
	ClassSimple  TaskClass = "simple"
	ClassComplex TaskClass = "complex"
	ClassInvalid TaskClass = "invalid"
)

// ClassOf maps a ParsedTask's type to its TaskClass.
func ClassOf(t TaskType) TaskClass {
	switch t {
	case TaskSendMsg, TaskPostMomentOnlyText:
		return ClassSimple
	case TaskOthers:
		return ClassComplex
	default:
		return ClassInvalid
	}
}
