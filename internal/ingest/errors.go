package ingest

import "errors"

// Sentinel errors returned by the orchestrator. The HTTP layer maps
// these onto status codes.
var (
	// ErrUnauthorized means the request carried no API credentials.
	ErrUnauthorized = errors.New("ingest: api key id and api key are required")

	// ErrMissingErrorText means the report had no error to analyze.
	ErrMissingErrorText = errors.New("ingest: error text is required")

	// ErrMissingLLMConfig means the resolved or inline credentials do
	// not include a usable provider, key and model.
	ErrMissingLLMConfig = errors.New("ingest: llm provider, api key and model are required")

	// ErrMissingMailConfig means the resolved or inline credentials do
	// not include a usable smtp user, password and recipient.
	ErrMissingMailConfig = errors.New("ingest: smtp user, password and recipient are required")
)
