package extractor

import "fmt"

// ExtractionError is a failure to obtain structured invoice data from a
// document, carrying the provider for log attribution.
type ExtractionError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s extraction failed: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s extraction failed: %s", e.Provider, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
