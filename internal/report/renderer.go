// Package report renders the per-inspection PDF document.  The layout is a
// fixed header on the first page followed by one block per photo, paginated
// with a vertical cursor.  All layout numbers are constants and the PDF
// creation date is pinned, so rendering the same inspection with the same
// photo set always produces identical bytes.
package report

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/iliyamo/property-inspection-api/internal/model"
)

// Layout constants, in points on a Letter page (612 x 792).  The image
// block mirrors the classic report layout: a 200x100 image with its label
// to the right, 120 points per block, text placeholders take a single
// 20 point line.
const (
	marginLeft   = 50.0  // left edge for all content
	topCursor    = 42.0  // cursor position at the top of every page
	bottomMargin = 50.0  // blocks never start below pageHeight-bottomMargin
	pageHeight   = 792.0 // Letter height in points

	titleY  = 52.0 // baseline of the report title on page one
	notesY  = 72.0 // baseline of the notes line
	photosY = 92.0 // baseline of the "Photos:" caption
	firstY  = 112.0 // cursor after the header block

	imageW       = 200.0 // drawn image width
	imageH       = 100.0 // drawn image height
	labelX       = 260.0 // x position of the label next to an image
	photoBlockH  = 120.0 // vertical space consumed by an image block
	placeholderH = 20.0  // vertical space consumed by a failure line
)

// creationDate is embedded in every document instead of the wall clock so
// that identical input yields identical bytes (golden-file testing).
var creationDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Document is a finished report.
type Document struct {
	Bytes         []byte // the serialized PDF
	Pages         int    // number of emitted pages
	FailedFetches int    // photos replaced by a placeholder line
}

// Renderer produces inspection reports.  It is safe for concurrent use;
// each Render call builds an independent document.
type Renderer struct {
	fetcher *ImageFetcher
}

// NewRenderer builds a Renderer whose image fetches are bounded by
// fetchTimeout.
func NewRenderer(fetchTimeout time.Duration) *Renderer {
	return &Renderer{fetcher: NewImageFetcher(fetchTimeout)}
}

// Render builds the PDF for one inspection and its ordered photos.  Photo
// fetch failures degrade to placeholder lines and never abort the
// document; only an internal PDF engine failure returns an error.
func (r *Renderer) Render(ctx context.Context, insp *model.Inspection, photos []*model.Photo) (*Document, error) {
	f := fpdf.New("P", "pt", "Letter", "")
	f.SetCreationDate(creationDate)
	f.SetModificationDate(creationDate)
	f.SetAutoPageBreak(false, 0) // pagination is driven by the cursor below
	f.AddPage()

	// Header, first page only.
	f.SetFont("Helvetica", "", 16)
	f.Text(marginLeft, titleY, fmt.Sprintf("Inspection Report: %s", insp.Address))
	f.SetFont("Helvetica", "", 12)
	notes := ""
	if insp.Notes != nil {
		notes = *insp.Notes
	}
	f.Text(marginLeft, notesY, fmt.Sprintf("Notes: %s", notes))
	f.Text(marginLeft, photosY, "Photos:")

	cursor := firstY
	failed := 0
	for _, p := range photos {
		data, imgType, err := r.fetcher.Fetch(ctx, p.URL)
		blockH := photoBlockH
		if err != nil {
			blockH = placeholderH
		}

		// Break the page before the block would cross the bottom margin.
		if cursor+blockH > pageHeight-bottomMargin {
			f.AddPage()
			f.SetFont("Helvetica", "", 12)
			cursor = topCursor
		}

		if err != nil {
			failed++
			f.Text(marginLeft, cursor+12, fmt.Sprintf("Failed to load image: %s", p.URL))
			cursor += placeholderH
			continue
		}

		name := fmt.Sprintf("photo-%d", p.ID)
		opts := fpdf.ImageOptions{ImageType: imgType}
		f.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
		f.ImageOptions(name, marginLeft, cursor, imageW, imageH, false, opts, 0, "")
		if p.Label != nil && *p.Label != "" {
			f.Text(labelX, cursor+imageH/2, fmt.Sprintf("Label: %s", *p.Label))
		}
		cursor += photoBlockH
	}

	var buf bytes.Buffer
	if err := f.Output(&buf); err != nil {
		return nil, err
	}
	return &Document{
		Bytes:         buf.Bytes(),
		Pages:         f.PageCount(),
		FailedFetches: failed,
	}, nil
}

// Filename returns the attachment name used when a report is downloaded.
func Filename(inspectionID uint64) string {
	return fmt.Sprintf("inspection_%d.pdf", inspectionID)
}
