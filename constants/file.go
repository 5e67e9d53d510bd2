package constants

import "strings"

// FileFormat selects the extraction strategy for a submitted file.
type FileFormat string

const (
	PDF   FileFormat = "PDF"   // native text layer with OCR fallback
	IMAGE FileFormat = "IMAGE" // straight to recognition
	TEXT  FileFormat = "TEXT"  // verbatim UTF-8 read
)

// imageExtensions are the raster formats we hand to the recognition engine.
var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tiff": {},
	"bmp":  {},
	"gif":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// DetectFormat maps a declared MIME type and file extension to a FileFormat.
// Rules are checked in priority order (pdf, image, text); within a rule the
// MIME type and the extension are both accepted. Pure function, no side
// effects; unknown combinations report ok=false instead of guessing.
func DetectFormat(mimeType, ext string) (FileFormat, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	ext = NormalizeExt(ext)

	switch {
	case mimeType == "application/pdf" || ext == "pdf":
		return PDF, true
	case strings.HasPrefix(mimeType, "image/") || isImageExt(ext):
		return IMAGE, true
	case mimeType == "text/plain" || ext == "txt":
		return TEXT, true
	default:
		return "", false
	}
}

func isImageExt(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}
