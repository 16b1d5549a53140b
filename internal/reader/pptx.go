package reader

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"caseforge/internal/core"
	"caseforge/internal/logger"
	"caseforge/internal/visual"
)

// slideFileRe matches slide part names and captures the slide number.
var slideFileRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Minimal views of the PresentationML slide markup. Only local names are
// matched, which is enough to tell shapes, pictures, and groups apart.
type pptxSlideXML struct {
	Background pptxBackground `xml:"cSld>bg"`
	Tree       pptxShapeTree  `xml:"cSld>spTree"`
}

type pptxBackground struct {
	Blip pptxBlip `xml:"bgPr>blipFill>blip"`
}

type pptxShapeTree struct {
	Shapes   []pptxShape     `xml:"sp"`
	Pictures []pptxPicture   `xml:"pic"`
	Groups   []pptxShapeTree `xml:"grpSp"`
}

type pptxShape struct {
	Placeholder *pptxPlaceholder `xml:"nvSpPr>nvPr>ph"`
	Paragraphs  []pptxParagraph  `xml:"txBody>p"`
	Fill        pptxBlip         `xml:"spPr>blipFill>blip"`
}

type pptxPlaceholder struct {
	Type string `xml:"type,attr"`
}

type pptxParagraph struct {
	Runs []string `xml:"r>t"`
}

type pptxPicture struct {
	Props pptxPicProps `xml:"nvPicPr>cNvPr"`
	Blip  pptxBlip     `xml:"blipFill>blip"`
}

type pptxPicProps struct {
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
}

type pptxBlip struct {
	Embed string `xml:"embed,attr"`
}

type pptxRelationships struct {
	Rels []pptxRelationship `xml:"Relationship"`
}

type pptxRelationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// slideEntry pairs a slide part with its number from the file name.
type slideEntry struct {
	num  int
	file *zip.File
}

// readPPTX extracts slide text and images from a PowerPoint archive. Slides
// are processed in file-number order, batched by SlidesPerChunk. Decks over
// 50 slides only extract images from a sampled subset of slides; text is
// always taken from every slide.
func (s *Service) readPPTX(sourcePath string, noImages bool) (string, []core.ExtractedImage, int, error) {
	r, err := zip.OpenReader(sourcePath)
	if err != nil {
		return "", nil, 0, fmt.Errorf("%w: pptx: %v", ErrCorruptInput, err)
	}
	defer r.Close()

	entries := make(map[string]*zip.File, len(r.File))
	var slides []slideEntry
	for _, f := range r.File {
		entries[f.Name] = f
		if m := slideFileRe.FindStringSubmatch(f.Name); m != nil {
			num, _ := strconv.Atoi(m[1])
			slides = append(slides, slideEntry{num: num, file: f})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	if len(slides) == 0 {
		return "", nil, 0, nil
	}

	imageSlides := imageExtractionSet(len(slides))

	var (
		slideTexts []string
		images     []core.ExtractedImage
		imgCount   int
		fillCount  int
	)

	for start := 0; start < len(slides); start += s.opts.SlidesPerChunk {
		end := start + s.opts.SlidesPerChunk
		if end > len(slides) {
			end = len(slides)
		}

		for i := start; i < end; i++ {
			entry := slides[i]

			slide, err := parseSlideXML(entry.file)
			if err != nil {
				logger.Debug("Skipping unparseable slide", "slide", entry.num, "error", err.Error())
				continue
			}

			title, texts, pics, fillEmbeds := walkShapeTree(&slide.Tree)
			slideTexts = append(slideTexts, assembleSlideText(entry.num, title, texts))

			if noImages || !imageSlides[i] || len(images) >= s.opts.MaxImagesPerDoc {
				continue
			}

			captionTitle := title
			if captionTitle == "" {
				captionTitle = fmt.Sprintf("Slide %d", entry.num)
			}
			rels := s.slideRelTargets(entries, entry.file.Name)

			for _, pic := range pics {
				if len(images) >= s.opts.MaxImagesPerDoc {
					break
				}
				img := s.resolveSlideImage(entries, rels, pic.Blip.Embed)
				if img == nil {
					continue
				}
				caption := strings.TrimSpace(pic.Props.Descr)
				if caption == "" {
					caption = "Image from " + captionTitle
				}
				images = append(images, core.ExtractedImage{
					ID:         fmt.Sprintf("pptx_image_%d", imgCount),
					Caption:    caption,
					Format:     img.Format,
					Data:       img.Data,
					SlideIndex: entry.num,
				})
				imgCount++
			}

			// Picture fills only matter early in the deck, where branded
			// backgrounds and cover art live.
			if i < 20 {
				fillEmbeds = append(fillEmbeds, slide.Background.Blip.Embed)
				for _, embed := range fillEmbeds {
					if len(images) >= s.opts.MaxImagesPerDoc {
						break
					}
					img := s.resolveSlideImage(entries, rels, embed)
					if img == nil {
						continue
					}
					images = append(images, core.ExtractedImage{
						ID:         fmt.Sprintf("pptx_fill_image_%d", fillCount),
						Caption:    "Background image from " + captionTitle,
						Format:     img.Format,
						Data:       img.Data,
						SlideIndex: entry.num,
					})
					fillCount++
				}
			}
		}
	}

	return strings.Join(slideTexts, "\n\n"), images, len(slides), nil
}

// imageExtractionSet decides which slide positions get image extraction.
// Small decks extract everywhere; big decks sample the first ten, the last
// ten, and every fifth slide between.
func imageExtractionSet(total int) map[int]bool {
	set := make(map[int]bool, total)
	if total <= 50 {
		for i := 0; i < total; i++ {
			set[i] = true
		}
		return set
	}
	for i := 0; i < total; i++ {
		if i < 10 || i >= total-10 || i%5 == 0 {
			set[i] = true
		}
	}
	return set
}

func parseSlideXML(f *zip.File) (*pptxSlideXML, error) {
	data, err := readZipFile(f)
	if err != nil {
		return nil, err
	}
	var slide pptxSlideXML
	if err := xml.Unmarshal(data, &slide); err != nil {
		return nil, err
	}
	return &slide, nil
}

// walkShapeTree traverses the shape tree with an explicit stack, collecting
// the title placeholder text, the remaining shape texts, pictures, and shape
// fill references. Text inside grouped shapes is attributed to the slide the
// same as top-level text.
func walkShapeTree(root *pptxShapeTree) (title string, texts []string, pics []pptxPicture, fillEmbeds []string) {
	stack := []*pptxShapeTree{root}

	for len(stack) > 0 {
		tree := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for idx := range tree.Shapes {
			shape := &tree.Shapes[idx]

			text := shapeText(shape)
			if text != "" {
				if title == "" && isTitlePlaceholder(shape.Placeholder) {
					title = text
				} else {
					texts = append(texts, text)
				}
			}
			if shape.Fill.Embed != "" {
				fillEmbeds = append(fillEmbeds, shape.Fill.Embed)
			}
		}

		pics = append(pics, tree.Pictures...)

		// Push in reverse so sibling groups pop in document order.
		for idx := len(tree.Groups) - 1; idx >= 0; idx-- {
			stack = append(stack, &tree.Groups[idx])
		}
	}

	return title, texts, pics, fillEmbeds
}

func isTitlePlaceholder(ph *pptxPlaceholder) bool {
	return ph != nil && (ph.Type == "title" || ph.Type == "ctrTitle")
}

func shapeText(shape *pptxShape) string {
	var lines []string
	for _, para := range shape.Paragraphs {
		line := strings.TrimSpace(strings.Join(para.Runs, ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// assembleSlideText renders one slide as a labeled block.
func assembleSlideText(num int, title string, texts []string) string {
	parts := make([]string, 0, len(texts)+2)
	parts = append(parts, fmt.Sprintf("Slide %d:", num))
	if title != "" {
		parts = append(parts, "Title: "+title)
	}
	parts = append(parts, texts...)
	return strings.Join(parts, "\n")
}

// slideRelTargets parses the slide's relationship part into an rId → archive
// path map. Targets are relative to ppt/slides/.
func (s *Service) slideRelTargets(entries map[string]*zip.File, slideName string) map[string]string {
	relName := "ppt/slides/_rels/" + path.Base(slideName) + ".rels"
	relFile, ok := entries[relName]
	if !ok {
		return nil
	}

	data, err := readZipFile(relFile)
	if err != nil {
		return nil
	}
	var rels pptxRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		logger.Debug("Skipping unparseable slide relationships", "entry", relName, "error", err.Error())
		return nil
	}

	targets := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		target := strings.TrimPrefix(rel.Target, "/")
		if !strings.HasPrefix(target, "ppt/") {
			target = path.Clean("ppt/slides/" + target)
		}
		targets[rel.ID] = target
	}
	return targets
}

// resolveSlideImage loads and normalizes the media file behind an embed
// reference. Returns nil for missing, undersized, or undecodable media.
func (s *Service) resolveSlideImage(entries map[string]*zip.File, rels map[string]string, embed string) *visual.Normalized {
	if embed == "" || rels == nil {
		return nil
	}
	target, ok := rels[embed]
	if !ok {
		return nil
	}
	mediaFile, ok := entries[target]
	if !ok {
		return nil
	}

	data, err := readZipFile(mediaFile)
	if err != nil {
		logger.Debug("Skipping unreadable media entry", "entry", target, "error", err.Error())
		return nil
	}
	return s.normalizeImage(data)
}
