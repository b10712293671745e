package driver

import "errors"

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("driver: neo4j URI is required")
