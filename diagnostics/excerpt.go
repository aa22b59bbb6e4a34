package diagnostics

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SourceReader returns the lines of a source.
type SourceReader interface {
	Lines(src Source) ([]string, error)
}

// SourceReaderFunc lets a function be a SourceReader.
type SourceReaderFunc func(src Source) ([]string, error)

func (f SourceReaderFunc) Lines(src Source) ([]string, error) {
	return f(src)
}

// FileReader reads sources from the file system.
type FileReader struct{}

func (r FileReader) Lines(src Source) ([]string, error) {
	bs, err := os.ReadFile(string(src))
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.ReplaceAll(string(bs), "\r\n", "\n"), "\n"), nil
}

// DefaultReader is used by Reports that don't have a Reader.
var DefaultReader SourceReader = FileReader{}

// StringReader serves sources from memory.
type StringReader map[Source]string

func (r StringReader) Lines(src Source) ([]string, error) {
	s, have := r[src]
	if !have {
		return nil, os.ErrNotExist
	}
	return strings.Split(s, "\n"), nil
}

// Excerpt renders the source lines for the location with indicator
// lines marking the columns.
//
// A single-line location gives the line and then an indicator line
// beneath it, with the first '~' replaced by '^'.  A multi-line
// location gives an indicator line above (first '~' replaced by 'v'),
// the first line, the middle line (for a span of three lines) or an
// ellipsis line (for longer spans), the last line, and an indicator
// line below (last '~' replaced by '^').  The result ends with a
// newline.
//
// Returns false if the lines can't be read or the location doesn't
// make sense.
func Excerpt(r SourceReader, src Source, loc *Location) (string, bool) {
	if loc == nil || loc.StartLine < 1 || loc.EndLine < loc.StartLine || loc.StartColumn < 1 {
		return "", false
	}
	lines, err := r.Lines(src)
	if err != nil || len(lines) < loc.EndLine {
		return "", false
	}

	pad := len(strconv.Itoa(loc.EndLine))
	span := loc.EndLine - loc.StartLine + 1

	var b strings.Builder
	if span == 1 {
		b.WriteString(sourceLine(lines, loc.StartLine, pad))
		b.WriteString(indicator(loc, pad, below))
	} else {
		b.WriteString(indicator(loc, pad, above))
		b.WriteString(sourceLine(lines, loc.StartLine, pad))
		if span == 3 {
			b.WriteString(sourceLine(lines, loc.StartLine+1, pad))
		} else if 3 < span {
			b.WriteString("\n\t" + fmt.Sprintf("%*s", pad, ".") + "..")
		}
		b.WriteString(sourceLine(lines, loc.EndLine, pad))
		b.WriteString(indicator(loc, pad, below))
	}
	b.WriteString("\n")

	return b.String(), true
}

func sourceLine(lines []string, n, pad int) string {
	return "\n\t" + fmt.Sprintf("%*d", pad, n) + " |\t" + lines[n-1]
}

type position int

const (
	above position = iota
	below
)

// indicator makes an indicator line.  Above the excerpt, the first
// '~' becomes 'v'.  Below a single line, the first '~' becomes '^';
// below a multi-line span, the last one does.
//
// A span with no width still gets one mark.
func indicator(loc *Location, pad int, pos position) string {
	width := loc.EndColumn - loc.StartColumn
	if width < 1 {
		width = 1
	}
	marks := []byte(strings.Repeat("~", width))
	switch {
	case pos == above:
		marks[0] = 'v'
	case loc.StartLine == loc.EndLine:
		marks[0] = '^'
	default:
		marks[len(marks)-1] = '^'
	}
	return "\n\t" + strings.Repeat(" ", pad) + " .\t" + strings.Repeat(" ", loc.StartColumn-1) + string(marks)
}
