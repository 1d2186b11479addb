// Package results holds the success/failure envelope returned by application
// services. A failure is a handled domain outcome; infrastructure problems are
// returned as a plain error next to the result.
package results

// OperationResult carries either a success payload or a failure payload.
type OperationResult[S any, F any] struct {
	Success *S
	Failure *F
}

// SuccessResult builds a result holding a success payload.
func SuccessResult[S any, F any](success S) OperationResult[S, F] {
	return OperationResult[S, F]{Success: &success}
}

// FailureResult builds a result holding a failure payload.
func FailureResult[S any, F any](failure F) OperationResult[S, F] {
	return OperationResult[S, F]{Failure: &failure}
}

// IsSuccess reports whether the result carries a success payload.
func (r OperationResult[S, F]) IsSuccess() bool {
	return r.Success != nil
}

// IsFailure reports whether the result carries a failure payload.
func (r OperationResult[S, F]) IsFailure() bool {
	return r.Failure != nil
}

// FailureResultOrError returns err when it is set and a failure result
// holding *failure otherwise. One of the two must be non-nil.
func FailureResultOrError[S any, F any](failure *F, err error) (OperationResult[S, F], error) {
	if err != nil {
		return OperationResult[S, F]{}, err
	}
	return FailureResult[S, F](*failure), nil
}
