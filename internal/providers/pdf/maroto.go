package pdf

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// roughly how many body characters fit on one line of a full-width column
const charsPerLine = 95

// pdfDateLayout is the digit part of a PDF date string, D:YYYYMMDDHHmmSS.
const pdfDateLayout = "20060102150405"

// the writer stamps /ModDate with the wall clock; the 14 digits are replaced
// in place so xref offsets stay valid
var modDatePattern = regexp.MustCompile(`/ModDate \(D:(\d{14})`)

type MarotoRenderer struct{}

func New() Renderer {
	return &MarotoRenderer{}
}

func (r *MarotoRenderer) RenderDraft(markdown string, meta Metadata) ([]byte, error) {
	m := newDocument(meta, "Draft will")
	header(m, meta, "DRAFT")
	body(m, markdown)
	return generate(m, meta.GeneratedAt)
}

func (r *MarotoRenderer) RenderSigned(markdown string, meta Metadata, signatures []Signature) ([]byte, error) {
	if len(signatures) == 0 {
		return nil, fmt.Errorf("signed will requires at least one signature")
	}
	m := newDocument(meta, "Signed will")
	header(m, meta, "SIGNED")
	body(m, markdown)
	attestation(m, signatures)
	return generate(m, meta.GeneratedAt)
}

func newDocument(meta Metadata, title string) core.Maroto {
	builder := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		WithTitle(fmt.Sprintf("%s - %s", title, meta.ClientName), false).
		WithAuthor(meta.TenantName, false).
		WithSubject(fmt.Sprintf("will %s v%d", meta.WillID, meta.Version), false)
	if !meta.GeneratedAt.IsZero() {
		builder = builder.WithCreationDate(meta.GeneratedAt.UTC())
	}
	return maroto.New(builder.Build())
}

func header(m core.Maroto, meta Metadata, status string) {
	m.AddRow(12,
		text.NewCol(8, meta.TenantName, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, status, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)
	m.AddRow(12,
		col.New(8).Add(
			text.New("Client: "+meta.ClientName, props.Text{Top: 0, Size: 9}),
			text.New(fmt.Sprintf("Will %s, version %d", meta.WillID, meta.Version), props.Text{Top: 4, Size: 9}),
		),
		col.New(4).Add(
			text.New(meta.GeneratedAt.UTC().Format("2 January 2006"), props.Text{Size: 9, Align: align.Right}),
		),
	)
	m.AddRow(4, line.NewCol(12))
}

func body(m core.Maroto, markdown string) {
	for _, b := range parseMarkdown(markdown) {
		switch b.kind {
		case blockTitle:
			m.AddRow(12, text.NewCol(12, b.text, props.Text{Size: 18, Style: fontstyle.Bold, Top: 2}))
		case blockHeading:
			m.AddRow(10, text.NewCol(12, b.text, props.Text{Size: 12, Style: fontstyle.Bold, Top: 3}))
		case blockRule:
			m.AddRow(4, line.NewCol(12))
		case blockStrong:
			m.AddRow(rowHeight(b.text), text.NewCol(12, b.text, props.Text{Size: 10, Style: fontstyle.Bold}))
		case blockEmphasis:
			m.AddRow(rowHeight(b.text), text.NewCol(12, b.text, props.Text{Size: 9, Style: fontstyle.Italic}))
		case blockBullet:
			m.AddRow(rowHeight(b.text), text.NewCol(12, b.text, props.Text{Size: 10, Left: 4}))
		default:
			m.AddRow(rowHeight(b.text), text.NewCol(12, b.text, props.Text{Size: 10}))
		}
	}
}

func attestation(m core.Maroto, signatures []Signature) {
	m.AddRow(14, text.NewCol(12, "ATTESTATION", props.Text{Size: 12, Style: fontstyle.Bold, Top: 6}))
	m.AddRow(8,
		text.NewCol(5, "Name", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Role", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Signed", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, sig := range signatures {
		m.AddRow(8,
			text.NewCol(5, sig.Name, props.Text{Size: 9}),
			text.NewCol(3, capitalize(sig.Role), props.Text{Size: 9}),
			text.NewCol(4, sig.SignedAt.UTC().Format("2 Jan 2006 15:04 MST"), props.Text{Size: 9, Align: align.Right}),
		)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func rowHeight(s string) float64 {
	lines := utf8.RuneCountInString(s)/charsPerLine + 1
	return float64(lines) * 5
}

func generate(m core.Maroto, generatedAt time.Time) ([]byte, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return pinModDate(doc.GetBytes(), generatedAt), nil
}

// pinModDate rewrites the modification stamp to generatedAt so identical
// input and metadata produce identical bytes. A zero time leaves b untouched.
func pinModDate(b []byte, generatedAt time.Time) []byte {
	if generatedAt.IsZero() {
		return b
	}
	stamp := []byte(generatedAt.UTC().Format(pdfDateLayout))
	for _, loc := range modDatePattern.FindAllSubmatchIndex(b, -1) {
		copy(b[loc[2]:loc[3]], stamp)
	}
	return b
}
