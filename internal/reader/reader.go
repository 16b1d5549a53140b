// Package reader turns raw documents (PDF, DOCX, PPTX, plain text, web pages)
// into the normalized ExtractedDocument model. Each format reader extracts
// text and embedded images; structure extraction runs on the combined text.
package reader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"caseforge/internal/core"
	"caseforge/internal/logger"
	"caseforge/internal/structure"
	"caseforge/internal/visual"

	"github.com/google/uuid"
)

// Options controls size limits and extraction behavior for the reader service.
type Options struct {
	MaxFileBytes       int64         // Absolute cap; larger inputs are rejected
	LargeFileBytes     int64         // Above this the document skips generative processing
	VeryLargeFileBytes int64         // Above this no images are extracted
	MaxImagesPerDoc    int           // Global image cap per document
	MinImageDim        int           // Images below this dimension are skipped
	MaxImageDimension  int           // Downscale target passed to the normalizer
	JPEGQuality        int           // Re-encode quality passed to the normalizer
	SlidesPerChunk     int           // PPTX slides processed per batch
	UserAgent          string        // User-Agent header for web fetches
	WebTimeout         time.Duration // HTTP client timeout for web fetches
}

// DefaultOptions returns the limits used when no configuration is supplied.
func DefaultOptions() Options {
	return Options{
		MaxFileBytes:       100 * 1024 * 1024,
		LargeFileBytes:     15 * 1024 * 1024,
		VeryLargeFileBytes: 25 * 1024 * 1024,
		MaxImagesPerDoc:    100,
		MinImageDim:        50,
		MaxImageDimension:  1000,
		JPEGQuality:        75,
		SlidesPerChunk:     30,
		UserAgent:          "Caseforge/1.0",
		WebTimeout:         30 * time.Second,
	}
}

// Service reads documents from files or URLs and produces ExtractedDocuments.
type Service struct {
	opts       Options
	normalizer *visual.Normalizer
	httpClient *http.Client
}

// NewService creates a reader service with the given options. Zero-valued
// fields fall back to the defaults.
func NewService(opts Options) *Service {
	defaults := DefaultOptions()
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = defaults.MaxFileBytes
	}
	if opts.LargeFileBytes <= 0 {
		opts.LargeFileBytes = defaults.LargeFileBytes
	}
	if opts.VeryLargeFileBytes <= 0 {
		opts.VeryLargeFileBytes = defaults.VeryLargeFileBytes
	}
	if opts.MaxImagesPerDoc <= 0 {
		opts.MaxImagesPerDoc = defaults.MaxImagesPerDoc
	}
	if opts.MinImageDim <= 0 {
		opts.MinImageDim = defaults.MinImageDim
	}
	if opts.MaxImageDimension <= 0 {
		opts.MaxImageDimension = defaults.MaxImageDimension
	}
	if opts.JPEGQuality <= 0 {
		opts.JPEGQuality = defaults.JPEGQuality
	}
	if opts.SlidesPerChunk <= 0 {
		opts.SlidesPerChunk = defaults.SlidesPerChunk
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.WebTimeout <= 0 {
		opts.WebTimeout = defaults.WebTimeout
	}

	return &Service{
		opts:       opts,
		normalizer: visual.NewNormalizer(opts.MaxImageDimension, opts.JPEGQuality),
		httpClient: &http.Client{Timeout: opts.WebTimeout},
	}
}

// ProcessDocument reads the document at the given path or URL and returns the
// extracted text, images, and structure. Web sources never return an error:
// fetch failures are recorded on the document status instead. File sources
// return typed errors for unsupported, oversized, or corrupt inputs.
func (s *Service) ProcessDocument(ctx context.Context, source string) (*core.ExtractedDocument, error) {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s.processWeb(ctx, source)
	}

	var kind string
	switch ext := strings.ToLower(filepath.Ext(source)); ext {
	case ".pdf":
		kind = core.SourcePDF
	case ".doc", ".docx":
		kind = core.SourceDOCX
	case ".pptx":
		kind = core.SourcePPTX
	case ".txt":
		kind = core.SourceTXT
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", source, err)
	}
	size := info.Size()
	if size > s.opts.MaxFileBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrResourceExhausted, size, s.opts.MaxFileBytes)
	}

	skipGenerative := size > s.opts.LargeFileBytes
	noImages := size > s.opts.VeryLargeFileBytes
	if skipGenerative {
		logger.Warn("Large document will skip generative processing",
			"source", source, "size_bytes", size)
	}

	doc := &core.ExtractedDocument{
		ID: uuid.NewString(),
		Metadata: core.DocMetadata{
			SourceType:     kind,
			Source:         source,
			SizeBytes:      size,
			Status:         core.StatusSuccess,
			SkipGenerative: skipGenerative,
		},
	}

	var (
		text      string
		images    []core.ExtractedImage
		pageCount int
	)

	switch kind {
	case core.SourcePDF:
		text, images, pageCount, err = s.readPDF(source, noImages)
	case core.SourceDOCX:
		text, images, err = s.readDOCX(source, noImages)
	case core.SourcePPTX:
		text, images, pageCount, err = s.readPPTX(source, noImages)
	case core.SourceTXT:
		text, err = readTXT(source)
	}
	if err != nil {
		return nil, err
	}

	doc.Text = text
	doc.Images = images
	s.finish(doc, pageCount)

	logger.Info("Document processed",
		"source", source, "type", kind,
		"chars", len(doc.Text), "images", len(doc.Images))
	return doc, nil
}

// finish runs structure extraction over the collected text and stamps the
// document. The reader owns the page count since only it knows pages/slides.
func (s *Service) finish(doc *core.ExtractedDocument, pageCount int) {
	doc.Structured = structure.Extract(doc.Text, doc.Metadata.SourceType)
	doc.Structured.PageCount = pageCount
	if doc.Metadata.Title == "" {
		doc.Metadata.Title = doc.Structured.Title
	}
	doc.ProcessedAt = time.Now().UTC()
}

// normalizeImage decodes, flattens, and re-encodes raw image bytes, dropping
// anything below the minimum dimension. Returns nil when the image should be
// skipped.
func (s *Service) normalizeImage(data []byte) *visual.Normalized {
	w, h, err := visual.Dimensions(data)
	if err != nil {
		return nil
	}
	if w < s.opts.MinImageDim || h < s.opts.MinImageDim {
		return nil
	}
	norm, err := s.normalizer.Normalize(data)
	if err != nil {
		return nil
	}
	return norm
}
