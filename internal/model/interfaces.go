package model

// Extractor pulls SQL statements out of one source file.
type Extractor interface {
	// Extract parses the given file content and returns contexts ready for
	// validation. Templated statements keep their directive markup verbatim.
	Extract(filePath string, content []byte) ([]*SqlContext, error)
}

// Reporter renders scan findings.
type Reporter interface {
	Report(findings []Finding) error
}

// Finding pairs a validation result with the statement it was produced for.
type Finding struct {
	Context *SqlContext
	Result  *ValidationResult
}
