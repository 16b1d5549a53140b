// Package store persists extracted documents and generated case studies in a
// local SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"caseforge/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "caseforge.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		db:   db,
		path: dbPath,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize() error {
	documentsTable := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source TEXT,
		source_type TEXT,
		size_bytes INTEGER,
		status TEXT,
		error_detail TEXT,
		title TEXT,
		date TEXT,
		text TEXT,
		structured TEXT,
		skip_generative INTEGER,
		processed_at DATETIME
	);`

	imagesTable := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT,
		document_id TEXT,
		caption TEXT,
		format TEXT,
		data BLOB,
		slide_index INTEGER,
		selected INTEGER,
		PRIMARY KEY (document_id, id),
		FOREIGN KEY (document_id) REFERENCES documents (id)
	);`

	caseStudiesTable := `
	CREATE TABLE IF NOT EXISTS case_studies (
		id TEXT PRIMARY KEY,
		document_id TEXT,
		audience TEXT,
		title TEXT,
		challenge TEXT,
		approach TEXT,
		solution TEXT,
		outcomes TEXT,
		summary TEXT,
		key_points TEXT,
		image_ids TEXT,
		generated_by TEXT,
		generated_at DATETIME,
		FOREIGN KEY (document_id) REFERENCES documents (id)
	);`

	tables := []string{documentsTable, imagesTable, caseStudiesTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument stores a document and its images, replacing any previous
// version with the same ID.
func (s *Store) SaveDocument(doc *core.ExtractedDocument) error {
	structured, _ := json.Marshal(doc.Structured)

	query := `
	INSERT OR REPLACE INTO documents
	(id, source, source_type, size_bytes, status, error_detail, title, date,
	 text, structured, skip_generative, processed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		doc.ID,
		doc.Metadata.Source,
		doc.Metadata.SourceType,
		doc.Metadata.SizeBytes,
		doc.Metadata.Status,
		doc.Metadata.ErrorDetail,
		doc.Metadata.Title,
		doc.Metadata.Date,
		doc.Text,
		string(structured),
		doc.Metadata.SkipGenerative,
		doc.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	if _, err := s.db.Exec("DELETE FROM images WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("failed to clear document images: %w", err)
	}
	for _, img := range doc.Images {
		_, err := s.db.Exec(`
		INSERT INTO images (id, document_id, caption, format, data, slide_index, selected)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
			img.ID, doc.ID, img.Caption, img.Format, img.Data, img.SlideIndex, img.Selected)
		if err != nil {
			return fmt.Errorf("failed to save image %s: %w", img.ID, err)
		}
	}

	return nil
}

// GetDocument retrieves a document with its images by ID. A missing document
// returns (nil, nil).
func (s *Store) GetDocument(id string) (*core.ExtractedDocument, error) {
	query := `
	SELECT id, source, source_type, size_bytes, status, error_detail, title, date,
	       text, structured, skip_generative, processed_at
	FROM documents WHERE id = ?`

	row := s.db.QueryRow(query, id)

	var doc core.ExtractedDocument
	var structured string

	err := row.Scan(
		&doc.ID,
		&doc.Metadata.Source,
		&doc.Metadata.SourceType,
		&doc.Metadata.SizeBytes,
		&doc.Metadata.Status,
		&doc.Metadata.ErrorDetail,
		&doc.Metadata.Title,
		&doc.Metadata.Date,
		&doc.Text,
		&structured,
		&doc.Metadata.SkipGenerative,
		&doc.ProcessedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	json.Unmarshal([]byte(structured), &doc.Structured)

	images, err := s.documentImages(doc.ID)
	if err != nil {
		return nil, err
	}
	doc.Images = images

	return &doc, nil
}

// documentImages loads a document's images in their original order.
func (s *Store) documentImages(documentID string) ([]core.ExtractedImage, error) {
	rows, err := s.db.Query(`
	SELECT id, caption, format, data, slide_index, selected
	FROM images WHERE document_id = ? ORDER BY rowid`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query images: %w", err)
	}
	defer rows.Close()

	var images []core.ExtractedImage
	for rows.Next() {
		var img core.ExtractedImage
		if err := rows.Scan(&img.ID, &img.Caption, &img.Format, &img.Data, &img.SlideIndex, &img.Selected); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// SaveCaseStudy stores a case study, replacing any previous version with the
// same ID. Key points and selected image IDs are serialized to JSON so they
// round-trip exactly.
func (s *Store) SaveCaseStudy(cs *core.CaseStudy) error {
	keyPoints, _ := json.Marshal(cs.KeyPoints)
	imageIDs, _ := json.Marshal(cs.SelectedImageIDs())

	query := `
	INSERT OR REPLACE INTO case_studies
	(id, document_id, audience, title, challenge, approach, solution, outcomes,
	 summary, key_points, image_ids, generated_by, generated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		cs.ID,
		cs.DocumentID,
		cs.Audience,
		cs.Title,
		cs.Challenge,
		cs.Approach,
		cs.Solution,
		cs.Outcomes,
		cs.Summary,
		string(keyPoints),
		string(imageIDs),
		cs.GeneratedBy,
		cs.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save case study: %w", err)
	}
	return nil
}

// GetCaseStudy retrieves a case study by ID, rehydrating its selected images
// from the document's stored images. A missing case study returns (nil, nil).
func (s *Store) GetCaseStudy(id string) (*core.CaseStudy, error) {
	query := `
	SELECT id, document_id, audience, title, challenge, approach, solution,
	       outcomes, summary, key_points, image_ids, generated_by, generated_at
	FROM case_studies WHERE id = ?`

	row := s.db.QueryRow(query, id)

	cs, err := scanCaseStudy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachSelectedImages(cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// attachSelectedImages restores cs.Images from the stored image rows, keeping
// the persisted ID order.
func (s *Store) attachSelectedImages(cs *core.CaseStudy) error {
	ids := cs.SelectedImageIDs()
	if len(ids) == 0 {
		return nil
	}

	images, err := s.documentImages(cs.DocumentID)
	if err != nil {
		return err
	}

	byID := make(map[string]core.ExtractedImage, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}

	restored := make([]core.ExtractedImage, 0, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok {
			img.Selected = true
			restored = append(restored, img)
		}
	}
	cs.Images = restored
	return nil
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCaseStudy(row rowScanner) (*core.CaseStudy, error) {
	var cs core.CaseStudy
	var keyPoints, imageIDs string

	err := row.Scan(
		&cs.ID,
		&cs.DocumentID,
		&cs.Audience,
		&cs.Title,
		&cs.Challenge,
		&cs.Approach,
		&cs.Solution,
		&cs.Outcomes,
		&cs.Summary,
		&keyPoints,
		&imageIDs,
		&cs.GeneratedBy,
		&cs.GeneratedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan case study: %w", err)
	}

	json.Unmarshal([]byte(keyPoints), &cs.KeyPoints)

	var ids []string
	json.Unmarshal([]byte(imageIDs), &ids)
	cs.Images = make([]core.ExtractedImage, 0, len(ids))
	for _, id := range ids {
		cs.Images = append(cs.Images, core.ExtractedImage{ID: id, Selected: true})
	}

	return &cs, nil
}

// ListDocuments returns all stored documents, newest first. Images are not
// loaded; use GetDocument for the full record.
func (s *Store) ListDocuments() ([]*core.ExtractedDocument, error) {
	rows, err := s.db.Query(`
	SELECT id, source, source_type, size_bytes, status, error_detail, title, date,
	       text, structured, skip_generative, processed_at
	FROM documents ORDER BY processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*core.ExtractedDocument
	for rows.Next() {
		var doc core.ExtractedDocument
		var structured string
		err := rows.Scan(
			&doc.ID,
			&doc.Metadata.Source,
			&doc.Metadata.SourceType,
			&doc.Metadata.SizeBytes,
			&doc.Metadata.Status,
			&doc.Metadata.ErrorDetail,
			&doc.Metadata.Title,
			&doc.Metadata.Date,
			&doc.Text,
			&structured,
			&doc.Metadata.SkipGenerative,
			&doc.ProcessedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		json.Unmarshal([]byte(structured), &doc.Structured)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// ListCaseStudies returns the case studies generated for a document, newest
// first. Images carry IDs only; use GetCaseStudy for rehydrated image data.
func (s *Store) ListCaseStudies(documentID string) ([]*core.CaseStudy, error) {
	rows, err := s.db.Query(`
	SELECT id, document_id, audience, title, challenge, approach, solution,
	       outcomes, summary, key_points, image_ids, generated_by, generated_at
	FROM case_studies WHERE document_id = ? ORDER BY generated_at DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query case studies: %w", err)
	}
	defer rows.Close()

	var studies []*core.CaseStudy
	for rows.Next() {
		cs, err := scanCaseStudy(rows)
		if err != nil {
			return nil, err
		}
		studies = append(studies, cs)
	}
	return studies, rows.Err()
}

// Stats summarizes the store contents.
type Stats struct {
	DocumentCount  int
	CaseStudyCount int
	ImageCount     int
	SizeBytes      int64
	LastUpdated    time.Time
}

// GetStats returns row counts and the database file size.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM documents":    &stats.DocumentCount,
		"SELECT COUNT(*) FROM case_studies": &stats.CaseStudyCount,
		"SELECT COUNT(*) FROM images":       &stats.ImageCount,
	}
	for query, target := range queries {
		if err := s.db.QueryRow(query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = fileInfo.Size()
		stats.LastUpdated = fileInfo.ModTime()
	}

	return stats, nil
}
