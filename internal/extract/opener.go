package extract

import (
	"github.com/textra-dev/textra/internal/pdfdoc"
)

// PDFOpener adapts pdfdoc to the pipeline's DocumentOpener contract.
type PDFOpener struct {
	Rasterizer *pdfdoc.Rasterizer
}

func (o PDFOpener) Open(path string) (Document, error) {
	d, err := pdfdoc.Open(path, o.Rasterizer)
	if err != nil {
		return nil, err
	}
	return pdfDocument{d}, nil
}

type pdfDocument struct {
	*pdfdoc.Document
}

func (d pdfDocument) Page(i int) Page {
	return d.Document.Page(i)
}
