package errors_test

import (
	"fmt"

	"github.com/agentstation/refdata/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := errors.NotFoundf("connection", "Connection not found")

	if errors.IsNotFound(err) {
		fmt.Println(errors.Message(err))
	}

	// Output: Connection not found
}

// Example_validation shows how user-facing messages survive wrapping.
func Example_validation() {
	err := fmt.Errorf("update config: %w", errors.Invalidf("top_k must be between 1 and 20"))

	fmt.Println(errors.IsValidationError(err))
	fmt.Println(errors.Message(err))

	// Output:
	// true
	// top_k must be between 1 and 20
}
