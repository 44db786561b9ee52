package unused

// Result is one reported element, unreferenced anywhere in the scanned
// corpus. UsageCount is always 0 by construction; the field exists for
// format compatibility with richer reporters.
type Result struct {
	QualifiedName string `json:"qualified_name"`
	DeclaredLines int    `json:"declared_lines"`
	UsageCount    int    `json:"usage_count"`
	Status        string `json:"status,omitempty"`
	File          string `json:"file,omitempty"`
	Fingerprint   string `json:"fingerprint,omitempty"`
}

// Report is the outcome of one pipeline run.
type Report struct {
	Language      string   `json:"language"`
	Root          string   `json:"root"`
	AnalysisFiles int      `json:"analysis_files"`
	TestFiles     int      `json:"test_files"`
	Declarations  int      `json:"declarations"`
	Results       []Result `json:"results"`
}
