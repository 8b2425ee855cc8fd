package archive

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"
)

var errNoPageImage = errors.New("page has no image")

// pdfBackend treats each PDF page as one entry and reads the largest image
// embedded on it. Scanned comics carry one full-page image per page.
type pdfBackend struct {
	path string
}

func (b *pdfBackend) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (b *pdfBackend) list() ([]Entry, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := api.PageCount(f, b.config())
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Name: pdfPageName(i + 1), Index: i}
	}
	return entries, nil
}

func pdfPageName(page int) string {
	return fmt.Sprintf("page-%04d", page)
}

func (b *pdfBackend) read(e Entry) ([]byte, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	page := e.Index + 1
	extracted, err := api.ExtractImagesRaw(f, []string{strconv.Itoa(page)}, b.config())
	if err != nil {
		return nil, fmt.Errorf("extract page %d: %w", page, err)
	}

	var best *model.Image
	for _, byObj := range extracted {
		for _, img := range byObj {
			if best == nil || img.Width*img.Height > best.Width*best.Height {
				best = &img
			}
		}
	}
	if best == nil {
		return nil, fmt.Errorf("page %d: %w", page, errNoPageImage)
	}
	return readAll(best, e.Name)
}
