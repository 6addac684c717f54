package models

import "errors"

// Failure taxonomy for the pipeline. Stages wrap these sentinels with
// fmt.Errorf("%w: ...") so callers can discriminate with errors.Is and pick
// a remediation: transport failures may be retried, content-shape failures
// must not be.
var (
	// ErrProvider is a transport or availability failure from an LLM or
	// embedding call, including timeouts.
	ErrProvider = errors.New("provider unavailable")

	// ErrStoreUnavailable means the vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrMalformedOutput means the provider responded but the content
	// violates the requested shape (e.g. unparseable JSON in JSON mode).
	ErrMalformedOutput = errors.New("malformed provider output")

	// ErrClassification means the parsed classification does not map to a
	// known category or lacks a field that category requires.
	ErrClassification = errors.New("unrecognized classification")

	// ErrSQLExtraction means generated text contains no usable SQL.
	ErrSQLExtraction = errors.New("no sql statement in generated text")

	// ErrSummarization is a terminal failure while producing a summary or
	// report, after provider retries are exhausted.
	ErrSummarization = errors.New("summarization failed")

	// ErrConfiguration marks invalid startup configuration. Fatal, never
	// produced per request.
	ErrConfiguration = errors.New("invalid configuration")
)
