package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"caseforge/internal/core"
	"caseforge/internal/logger"
)

// readDOCX extracts paragraph text from word/document.xml and embedded images
// from word/media/. Table cell paragraphs appear in the same stream since
// they are ordinary w:p elements inside the body.
func (s *Service) readDOCX(path string, noImages bool) (string, []core.ExtractedImage, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w: docx: %v", ErrCorruptInput, err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil, fmt.Errorf("%w: docx: word/document.xml not found in archive", ErrCorruptInput)
	}

	text, err := docxParagraphText(docFile)
	if err != nil {
		return "", nil, fmt.Errorf("%w: docx: %v", ErrCorruptInput, err)
	}

	var images []core.ExtractedImage
	if !noImages {
		images = s.docxImages(r.File)
	}

	return text, images, nil
}

// docxParagraphText walks the document XML token stream and emits one line
// per non-empty paragraph. Only w:t runs contribute characters, so field
// codes and instruction text are ignored.
func docxParagraphText(docFile *zip.File) (string, error) {
	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var (
		text        strings.Builder
		paragraph   strings.Builder
		inParagraph bool
		inRun       bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				paragraph.Reset()
			case "t":
				inRun = inParagraph
			case "tab":
				if inParagraph {
					paragraph.WriteByte('\t')
				}
			case "br":
				if inParagraph {
					paragraph.WriteByte('\n')
				}
			}

		case xml.CharData:
			if inRun {
				paragraph.Write(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				inParagraph = false
				if line := strings.TrimSpace(paragraph.String()); line != "" {
					text.WriteString(line)
					text.WriteByte('\n')
				}
			}
		}
	}

	return text.String(), nil
}

// docxImages collects every decodable image under word/media/ in archive
// order, normalized and capped at the per-document limit.
func (s *Service) docxImages(files []*zip.File) []core.ExtractedImage {
	var images []core.ExtractedImage

	for _, f := range files {
		if !strings.HasPrefix(f.Name, "word/media/") {
			continue
		}
		if len(images) >= s.opts.MaxImagesPerDoc {
			break
		}

		data, err := readZipFile(f)
		if err != nil {
			logger.Debug("Skipping unreadable media entry", "entry", f.Name, "error", err.Error())
			continue
		}
		norm := s.normalizeImage(data)
		if norm == nil {
			continue
		}

		n := len(images)
		images = append(images, core.ExtractedImage{
			ID:      fmt.Sprintf("docx_image_%d", n),
			Caption: fmt.Sprintf("Image %d", n+1),
			Format:  norm.Format,
			Data:    norm.Data,
		})
	}

	return images
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
