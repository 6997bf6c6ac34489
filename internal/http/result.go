package httpapi

// Result is the response envelope shared with the web and mobile clients.
// code 2000 is success; -1 is an error, with reason carrying the machine code.
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailWithReason is Fail plus a machine-readable reason.
func FailWithReason(message, reason string) Result[any] {
	r := Fail(message)
	r.Reason = reason
	return r
}
