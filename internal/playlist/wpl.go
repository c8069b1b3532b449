package playlist

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"

	"media-index/internal/database"
	"media-index/internal/iterator"
)

// WPL structure based on Windows Media Player playlist format
type WPL struct {
	XMLName xml.Name `xml:"smil"`
	Head    WPLHead  `xml:"head"`
	Body    WPLBody  `xml:"body"`
}

type WPLHead struct {
	Title string    `xml:"title"`
	Meta  []WPLMeta `xml:"meta"`
}

type WPLMeta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type WPLBody struct {
	Seq WPLSeq `xml:"seq"`
}

type WPLSeq struct {
	Media []WPLMedia `xml:"media"`
}

type WPLMedia struct {
	Src string `xml:"src,attr"`
}

// ExportWPL writes the current snapshot of the playlist as a WPL document,
// compiling one when the playlist has not started. Entries are written
// without resolving them. Sources are "<repository>/<file id>". The cursor
// of the playlist is not touched.
func (p *Playlist) ExportWPL(ctx context.Context, w io.Writer) error {
	refs, err := p.snapshot(ctx)
	if err != nil {
		return err
	}

	doc := WPL{Head: WPLHead{Title: p.name}}
	for _, ref := range refs {
		doc.Body.Seq.Media = append(doc.Body.Seq.Media, WPLMedia{
			Src: path.Join(ref.RepositoryID, ref.FileID),
		})
	}
	doc.Head.Meta = []WPLMeta{
		{Name: "Generator", Content: "media-index"},
		{Name: "ItemCount", Content: strconv.Itoa(len(doc.Body.Seq.Media))},
	}

	if _, err := io.WriteString(w, "<?wpl version=\"1.0\"?>\n"); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode playlist %s: %w", p.name, err)
	}
	return enc.Close()
}

func (p *Playlist) snapshot(ctx context.Context) ([]database.Ref, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	it := p.it
	if it == nil {
		var err error
		if it, err = iterator.Compile(ctx, p.store, p.resolver, p.criteria); err != nil {
			return nil, fmt.Errorf("failed to compile playlist %s: %w", p.name, err)
		}
	}
	return it.Refs(), nil
}
