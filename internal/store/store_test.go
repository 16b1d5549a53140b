package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"caseforge/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocument(id string, processedAt time.Time) *core.ExtractedDocument {
	return &core.ExtractedDocument{
		ID:   id,
		Text: "Acme Corp cut deployment time in half.\n\nThe migration finished in March.",
		Images: []core.ExtractedImage{
			{ID: "pptx_image_0", Caption: "Architecture diagram", Format: "png", Data: []byte{1, 2, 3}, SlideIndex: 1},
			{ID: "pptx_image_1", Caption: "Image from Slide 2", Format: "jpeg", Data: []byte{4, 5}, SlideIndex: 2},
		},
		Structured: core.StructuredContent{
			Title: "Acme Migration Report",
			Sections: []core.Section{
				{Title: "Introduction", Content: "Acme Corp cut deployment time in half."},
			},
			KeyPoints: []string{"Deployment time halved across every product team"},
			Entities: core.Entities{
				Organizations: []string{"Acme Corp"},
			},
			WordCount: 12,
			PageCount: 2,
		},
		Metadata: core.DocMetadata{
			SourceType: core.SourcePPTX,
			Source:     "deck.pptx",
			SizeBytes:  2048,
			Status:     core.StatusSuccess,
		},
		ProcessedAt: processedAt,
	}
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.db == nil {
		t.Error("Store database should not be nil")
	}

	dbPath := filepath.Join(tmpDir, "caseforge.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	_, err := NewStore(invalidPath)
	if err == nil {
		t.Error("Expected error when creating store under a file path")
	}
}

func TestSaveDocument_GetDocument(t *testing.T) {
	store := newTestStore(t)

	doc := testDocument("doc-1", time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC))
	if err := store.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	got, err := store.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored document, got nil")
	}

	if got.Text != doc.Text {
		t.Errorf("Expected text to round-trip, got '%s'", got.Text)
	}
	if got.Metadata.SourceType != core.SourcePPTX {
		t.Errorf("Expected source type pptx, got '%s'", got.Metadata.SourceType)
	}
	if got.Metadata.Source != "deck.pptx" {
		t.Errorf("Expected source 'deck.pptx', got '%s'", got.Metadata.Source)
	}
	if got.Metadata.SizeBytes != 2048 {
		t.Errorf("Expected size 2048, got %d", got.Metadata.SizeBytes)
	}
	if got.Metadata.Status != core.StatusSuccess {
		t.Errorf("Expected status success, got '%s'", got.Metadata.Status)
	}
	if got.Metadata.SkipGenerative {
		t.Error("Expected skip_generative to be false")
	}
	if !got.ProcessedAt.Equal(doc.ProcessedAt) {
		t.Errorf("Expected processed_at %v, got %v", doc.ProcessedAt, got.ProcessedAt)
	}

	if got.Structured.Title != "Acme Migration Report" {
		t.Errorf("Expected structured title to round-trip, got '%s'", got.Structured.Title)
	}
	if len(got.Structured.Sections) != 1 || got.Structured.Sections[0].Title != "Introduction" {
		t.Errorf("Expected structured sections to round-trip, got %v", got.Structured.Sections)
	}
	if !reflect.DeepEqual(got.Structured.KeyPoints, doc.Structured.KeyPoints) {
		t.Errorf("Expected key points %v, got %v", doc.Structured.KeyPoints, got.Structured.KeyPoints)
	}
	if !reflect.DeepEqual(got.Structured.Entities.Organizations, []string{"Acme Corp"}) {
		t.Errorf("Expected organizations to round-trip, got %v", got.Structured.Entities.Organizations)
	}
	if got.Structured.PageCount != 2 {
		t.Errorf("Expected page count 2, got %d", got.Structured.PageCount)
	}

	if len(got.Images) != 2 {
		t.Fatalf("Expected 2 images, got %d", len(got.Images))
	}
	if got.Images[0].ID != "pptx_image_0" || got.Images[1].ID != "pptx_image_1" {
		t.Errorf("Expected image order preserved, got %s, %s", got.Images[0].ID, got.Images[1].ID)
	}
	if !reflect.DeepEqual(got.Images[0].Data, []byte{1, 2, 3}) {
		t.Errorf("Expected image data to round-trip, got %v", got.Images[0].Data)
	}
	if got.Images[1].SlideIndex != 2 {
		t.Errorf("Expected slide index 2, got %d", got.Images[1].SlideIndex)
	}
}

func TestGetDocument_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetDocument("no-such-id")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing document, got %v", got)
	}
}

func TestSaveDocument_ReplacesImages(t *testing.T) {
	store := newTestStore(t)

	doc := testDocument("doc-1", time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC))
	if err := store.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	doc.Images = doc.Images[:1]
	if err := store.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument (second) failed: %v", err)
	}

	got, err := store.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if len(got.Images) != 1 {
		t.Errorf("Expected stale images to be replaced, got %d images", len(got.Images))
	}
}

func TestSaveCaseStudy_GetCaseStudy(t *testing.T) {
	store := newTestStore(t)

	doc := testDocument("doc-1", time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC))
	if err := store.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	cs := &core.CaseStudy{
		ID:         "cs-1",
		DocumentID: "doc-1",
		Audience:   "executives",
		Title:      "Acme Cuts Deployment Time in Half",
		Challenge:  "Releases were slow.",
		Approach:   "Trunk based development.",
		Solution:   "A delivery platform.",
		Outcomes:   "Lead time halved.",
		Summary:    "Acme halved its lead time.",
		KeyPoints:  []string{"Lead time halved", "Zero downtime \"big bang\" cutover", "Savings of €2.3M"},
		Images: []core.ExtractedImage{
			{ID: "pptx_image_1", Selected: true},
			{ID: "pptx_image_0", Selected: true},
		},
		GeneratedBy: core.GeneratedByBackend,
		GeneratedAt: time.Date(2025, 8, 20, 11, 0, 0, 0, time.UTC),
	}
	if err := store.SaveCaseStudy(cs); err != nil {
		t.Fatalf("SaveCaseStudy failed: %v", err)
	}

	got, err := store.GetCaseStudy("cs-1")
	if err != nil {
		t.Fatalf("GetCaseStudy failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored case study, got nil")
	}

	if got.DocumentID != "doc-1" {
		t.Errorf("Expected document ID 'doc-1', got '%s'", got.DocumentID)
	}
	if got.Audience != "executives" {
		t.Errorf("Expected audience 'executives', got '%s'", got.Audience)
	}
	if got.Title != cs.Title {
		t.Errorf("Expected title to round-trip, got '%s'", got.Title)
	}
	if got.Challenge != cs.Challenge || got.Approach != cs.Approach ||
		got.Solution != cs.Solution || got.Outcomes != cs.Outcomes || got.Summary != cs.Summary {
		t.Error("Expected all narrative sections to round-trip")
	}
	if got.GeneratedBy != core.GeneratedByBackend {
		t.Errorf("Expected generated_by backend, got '%s'", got.GeneratedBy)
	}
	if !got.GeneratedAt.Equal(cs.GeneratedAt) {
		t.Errorf("Expected generated_at %v, got %v", cs.GeneratedAt, got.GeneratedAt)
	}

	if !reflect.DeepEqual(got.KeyPoints, cs.KeyPoints) {
		t.Errorf("Expected key points to round-trip exactly:\nwant %q\ngot  %q", cs.KeyPoints, got.KeyPoints)
	}
	if !reflect.DeepEqual(got.SelectedImageIDs(), []string{"pptx_image_1", "pptx_image_0"}) {
		t.Errorf("Expected image IDs to round-trip in order, got %v", got.SelectedImageIDs())
	}

	if len(got.Images) != 2 {
		t.Fatalf("Expected 2 rehydrated images, got %d", len(got.Images))
	}
	if got.Images[0].Caption != "Image from Slide 2" {
		t.Errorf("Expected rehydrated caption, got '%s'", got.Images[0].Caption)
	}
	if !reflect.DeepEqual(got.Images[0].Data, []byte{4, 5}) {
		t.Errorf("Expected rehydrated image data, got %v", got.Images[0].Data)
	}
	if !got.Images[0].Selected || !got.Images[1].Selected {
		t.Error("Expected rehydrated images to be marked selected")
	}
}

func TestGetCaseStudy_Missing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetCaseStudy("no-such-id")
	if err != nil {
		t.Fatalf("GetCaseStudy failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing case study, got %v", got)
	}
}

func TestSaveCaseStudy_EmptyLists(t *testing.T) {
	store := newTestStore(t)

	cs := &core.CaseStudy{
		ID:          "cs-empty",
		DocumentID:  "doc-unsaved",
		Title:       "Bare Case Study",
		GeneratedBy: core.GeneratedByFallback,
		GeneratedAt: time.Date(2025, 8, 20, 11, 0, 0, 0, time.UTC),
	}
	if err := store.SaveCaseStudy(cs); err != nil {
		t.Fatalf("SaveCaseStudy failed: %v", err)
	}

	got, err := store.GetCaseStudy("cs-empty")
	if err != nil {
		t.Fatalf("GetCaseStudy failed: %v", err)
	}
	if len(got.KeyPoints) != 0 {
		t.Errorf("Expected no key points, got %v", got.KeyPoints)
	}
	if len(got.Images) != 0 {
		t.Errorf("Expected no images, got %v", got.Images)
	}
}

func TestListDocuments(t *testing.T) {
	store := newTestStore(t)

	older := testDocument("doc-old", time.Date(2025, 8, 19, 9, 0, 0, 0, time.UTC))
	newer := testDocument("doc-new", time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC))
	if err := store.SaveDocument(older); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	if err := store.SaveDocument(newer); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}

	docs, err := store.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0].ID != "doc-new" || docs[1].ID != "doc-old" {
		t.Errorf("Expected newest first, got %s, %s", docs[0].ID, docs[1].ID)
	}
	if docs[0].Structured.Title != "Acme Migration Report" {
		t.Errorf("Expected structured content in listing, got '%s'", docs[0].Structured.Title)
	}
}

func TestListCaseStudies(t *testing.T) {
	store := newTestStore(t)

	base := core.CaseStudy{
		DocumentID:  "doc-1",
		Title:       "Listing Fixture",
		GeneratedBy: core.GeneratedByFallback,
	}

	first := base
	first.ID = "cs-old"
	first.GeneratedAt = time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)
	second := base
	second.ID = "cs-new"
	second.GeneratedAt = time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
	other := base
	other.ID = "cs-other"
	other.DocumentID = "doc-2"
	other.GeneratedAt = time.Date(2025, 8, 20, 13, 0, 0, 0, time.UTC)

	for _, cs := range []core.CaseStudy{first, second, other} {
		cs := cs
		if err := store.SaveCaseStudy(&cs); err != nil {
			t.Fatalf("SaveCaseStudy failed: %v", err)
		}
	}

	studies, err := store.ListCaseStudies("doc-1")
	if err != nil {
		t.Fatalf("ListCaseStudies failed: %v", err)
	}
	if len(studies) != 2 {
		t.Fatalf("Expected 2 case studies for doc-1, got %d", len(studies))
	}
	if studies[0].ID != "cs-new" || studies[1].ID != "cs-old" {
		t.Errorf("Expected newest first, got %s, %s", studies[0].ID, studies[1].ID)
	}
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)

	doc := testDocument("doc-1", time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC))
	if err := store.SaveDocument(doc); err != nil {
		t.Fatalf("SaveDocument failed: %v", err)
	}
	cs := &core.CaseStudy{ID: "cs-1", DocumentID: "doc-1", GeneratedAt: time.Now().UTC()}
	if err := store.SaveCaseStudy(cs); err != nil {
		t.Fatalf("SaveCaseStudy failed: %v", err)
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.DocumentCount != 1 {
		t.Errorf("Expected 1 document, got %d", stats.DocumentCount)
	}
	if stats.CaseStudyCount != 1 {
		t.Errorf("Expected 1 case study, got %d", stats.CaseStudyCount)
	}
	if stats.ImageCount != 2 {
		t.Errorf("Expected 2 images, got %d", stats.ImageCount)
	}
	if stats.SizeBytes == 0 {
		t.Error("Expected non-zero database size")
	}
}
