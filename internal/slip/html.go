package slip

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

//go:embed templates/slip.html.tmpl
var templateFS embed.FS

// HTMLRenderer fills the slip template and converts the page to PDF with wkhtmltopdf.
type HTMLRenderer struct {
	tmpl    *template.Template
	convert func(ctx context.Context, page []byte) ([]byte, error)
}

// NewHTMLRenderer parses the embedded template. binPath overrides the
// wkhtmltopdf lookup when it is not empty.
func NewHTMLRenderer(binPath string) (*HTMLRenderer, error) {
	tmpl, err := template.New("slip.html.tmpl").
		Funcs(template.FuncMap{
			"money":     FormatMoney,
			"when":      formatTime,
			"storeName": func() string { return StoreName },
		}).
		ParseFS(templateFS, "templates/slip.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse slip template: %w", err)
	}

	if binPath != "" {
		wkhtmltopdf.SetPath(binPath)
	}

	return &HTMLRenderer{tmpl: tmpl, convert: wkhtmltopdfConvert}, nil
}

func (r *HTMLRenderer) Name() string { return "wkhtmltopdf" }

// HTML executes the template only.
func (r *HTMLRenderer) HTML(s *Slip) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, s); err != nil {
		return nil, fmt.Errorf("execute slip template: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *HTMLRenderer) Render(ctx context.Context, s *Slip) ([]byte, error) {
	page, err := r.HTML(s)
	if err != nil {
		return nil, err
	}
	return r.convert(ctx, page)
}

func wkhtmltopdfConvert(ctx context.Context, page []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.MarginTop.Set(10)
	pdfg.MarginBottom.Set(10)

	pdfg.AddPage(wkhtmltopdf.NewPageReader(bytes.NewReader(page)))

	if err := pdfg.CreateContext(ctx); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf: %w", err)
	}
	return pdfg.Bytes(), nil
}
