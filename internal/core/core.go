package core

import "time"

// Source type of a processed document.
const (
	SourcePDF  = "pdf"
	SourceDOCX = "docx"
	SourcePPTX = "pptx"
	SourceTXT  = "txt"
	SourceWeb  = "web"
)

// Processing status of an extracted document.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Origin of a generated case study.
const (
	GeneratedByBackend  = "backend"
	GeneratedByFallback = "fallback"
)

// ExtractedImage represents a single image pulled out of a document.
type ExtractedImage struct {
	ID         string `json:"id"`          // Unique within the owning document (e.g. "pptx_image_0")
	Caption    string `json:"caption"`     // Alt text or positional caption (e.g. "Image from Slide 3")
	Format     string `json:"format"`      // Encoded format subtype ("jpeg" or "png")
	Data       []byte `json:"data"`        // Encoded image bytes after normalization
	SlideIndex int    `json:"slide_index"` // 1-based slide or page the image came from (0 when unknown)
	Selected   bool   `json:"selected"`    // Whether the image was picked for the narrative
}

// Section is one heading-delimited chunk of document text.
type Section struct {
	Title   string `json:"title"`   // Detected heading (or "Introduction" for leading content)
	Content string `json:"content"` // Body text belonging to the heading
}

// Entities holds the coarse heuristic entity extraction results.
type Entities struct {
	Organizations []string `json:"organizations"` // Company-suffix matches, deduped in order of appearance
	People        []string `json:"people"`        // Honorific-prefixed name matches, deduped
	Dates         []string `json:"dates"`         // Date-pattern matches, deduped
}

// StructuredContent is the normalized document model derived from raw text.
type StructuredContent struct {
	Title     string    `json:"title"`      // First non-empty line of the document
	Sections  []Section `json:"sections"`   // Ordered partition of the text by detected headings
	KeyPoints []string  `json:"key_points"` // Short salient snippets, capped at 7
	Entities  Entities  `json:"entities"`   // Coarse entity extraction
	WordCount int       `json:"word_count"` // Number of word tokens in the raw text
	PageCount int       `json:"page_count"` // Pages (PDF) or slides (PPTX), 0 otherwise
}

// DocMetadata describes how a document was sourced and whether extraction succeeded.
type DocMetadata struct {
	SourceType     string `json:"source_type"`     // One of the Source* constants
	Source         string `json:"source"`          // Original file path or URL
	SizeBytes      int64  `json:"size_bytes"`      // Raw input size (0 for web)
	Status         string `json:"status"`          // StatusSuccess or StatusError
	ErrorDetail    string `json:"error_detail"`    // Human-readable failure detail when Status is error
	SkipGenerative bool   `json:"skip_generative"` // Set for oversized inputs that must bypass the backend
	Title          string `json:"title"`           // Page title (web only)
	Date           string `json:"date"`            // Publication date (web only)
}

// ExtractedDocument is the normalized output of a format reader and the sole
// input to case study generation.
type ExtractedDocument struct {
	ID          string            `json:"id"`           // Unique identifier for the document
	Text        string            `json:"text"`         // Full extracted text
	Images      []ExtractedImage  `json:"images"`       // Extracted images in document order
	Structured  StructuredContent `json:"structured"`   // Heuristic structure derived from Text
	Metadata    DocMetadata       `json:"metadata"`     // Source and status information
	ProcessedAt time.Time         `json:"processed_at"` // When extraction completed (UTC)
}

// CaseStudyDraft is the structured response shape expected from the
// generative backend. Field names match the JSON schema sent with the request.
type CaseStudyDraft struct {
	Title     string   `json:"title"`
	Challenge string   `json:"challenge"`
	Approach  string   `json:"approach"`
	Solution  string   `json:"solution"`
	Outcomes  string   `json:"outcomes"`
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// CaseStudy is the final narrative record produced from an extracted document.
type CaseStudy struct {
	ID          string           `json:"id"`           // Unique identifier for the case study
	DocumentID  string           `json:"document_id"`  // ID of the source ExtractedDocument
	Audience    string           `json:"audience"`     // Target audience the narrative was written for
	Title       string           `json:"title"`        // Case study title
	Challenge   string           `json:"challenge"`    // Problem or context section
	Approach    string           `json:"approach"`     // Methodology section
	Solution    string           `json:"solution"`     // Implementation section
	Outcomes    string           `json:"outcomes"`     // Results section
	Summary     string           `json:"summary"`      // Executive summary
	KeyPoints   []string         `json:"key_points"`   // Salient points carried into the narrative
	Images      []ExtractedImage `json:"images"`       // Ranked images attached to the narrative (max 3)
	GeneratedBy string           `json:"generated_by"` // GeneratedByBackend or GeneratedByFallback
	GeneratedAt time.Time        `json:"generated_at"` // When generation completed (UTC)
}

// SelectedImageIDs returns the IDs of the images attached to the case study,
// in rank order. This is the list persisted alongside key points.
func (c *CaseStudy) SelectedImageIDs() []string {
	ids := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		ids = append(ids, img.ID)
	}
	return ids
}
