package lang

import "github.com/russross/blackfriday/v2"

// Markdowner converts Markdown source into its rendered form. It backs both
// the `md` filter and the `include md` mode. The core only specifies this
// interface and its invocation points; DefaultMarkdowner is one concrete
// implementation, swappable via Options.Markdowner.
type Markdowner interface {
	Markdown(src []byte) ([]byte, error)
}

// DefaultMarkdowner renders Markdown with blackfriday's common extension
// set, matching the rendering mode vendored and used elsewhere in the
// example corpus for doc/changelog conversion.
type DefaultMarkdowner struct{}

func (DefaultMarkdowner) Markdown(src []byte) ([]byte, error) {
	return blackfriday.Run(src, blackfriday.WithExtensions(blackfriday.CommonExtensions)), nil
}
