// Package templates renders the DataSweeper pages. Components are written in
// the .templ files; the _templ.go files are generated from them.
package templates

//go:generate templ generate

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/datasweeper/internal/core"
)

// IndexData is everything the main page shows.
type IndexData struct {
	Files         []core.FileView
	Failures      []core.FileFailure
	MaxFiles      int
	MaxUploadSize int64
}

// outputFormats are the choices of the conversion form, in display order.
var outputFormats = []core.Format{core.FormatCSV, core.FormatExcel}

// fileURL is the form target of a per-file action.
func fileURL(fileID, action string) string {
	return "/files/" + url.PathEscape(fileID) + "/" + action
}

func shapeText(rows, cols int) string {
	return fmt.Sprintf("%d rows × %d columns", rows, cols)
}

func uploadHint(maxFiles int, maxSize int64) string {
	return fmt.Sprintf("Up to %d files, %s each. Uploading replaces the current files.", maxFiles, humanSize(maxSize))
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return strconv.FormatInt(n/mb, 10) + " MB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}
