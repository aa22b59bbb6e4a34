package tools

import (
	"encoding/json"
	"fmt"
	"html"
	"io"

	"github.com/Comcast/kexec/core"

	md "github.com/russross/blackfriday/v2"
)

// RenderDefinitionHTML writes an HTML fragment that documents the
// Definition's symbols and rules.  Docs are Markdown.
func RenderDefinitionHTML(def *core.Definition, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}
	code := func(x interface{}) string {
		js, err := json.Marshal(x)
		if err != nil {
			return html.EscapeString(err.Error())
		}
		return html.EscapeString(string(js))
	}

	f(`<div class="defnDoc doc">%s</div>`, md.Run([]byte(def.Doc)))

	{ // Symbols
		f(`<div class="symbols"><table>`)
		for _, label := range sortedLabels(def) {
			s := def.Symbols[label]
			f(`<tr class="symbol"><td><span id="sym-%s" class="symbolName">%s</span></td><td>`,
				html.EscapeString(label), html.EscapeString(label))
			if s.Sort != "" {
				f(`<div>sort: <span class="sort">%s</span></div>`, html.EscapeString(s.Sort))
			}
			if 0 < len(s.Attributes) {
				f(`<div>attributes: <code>%s</code></div>`, code(s.Attributes))
			}
			if s.Doc != "" {
				f(`<div class="symbolDoc doc">%s</div>`, md.Run([]byte(s.Doc)))
			}
			if s.Hook != nil {
				f(`<div class="hook">%s</div>`, html.EscapeString(s.Hook.Interpreter))
				if src, is := s.Hook.Source.(string); is {
					f(`<div class="code"><pre>%s</pre></div>`, html.EscapeString(src))
				} else {
					f(`<div class="code"><pre>%s</pre></div>`, code(s.Hook.Source))
				}
			}
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	rules := func(class string, rs []*core.Rule) {
		f(`<div class="%s"><table>`, class)
		for i, r := range rs {
			f(`<tr class="rule"><td><div class="ruleNum">%d</div></td><td>`, i)
			f(`<span id="rule-%s" class="ruleName">%s</span>`, html.EscapeString(r.Name), html.EscapeString(r.Name))
			if r.Doc != "" {
				f(`<div class="ruleDoc doc">%s</div>`, md.Run([]byte(r.Doc)))
			}
			f(`<table>`)
			f(`<tr><td>lhs</td><td><code>%s</code></td></tr>`, code(r.Left))
			f(`<tr><td>rhs</td><td><code>%s</code></td></tr>`, code(r.Right))
			for _, c := range r.Requires {
				f(`<tr><td>requires</td><td><code>%s</code> = <code>%s</code></td></tr>`, code(c.Left), code(c.Right))
			}
			if 0 < len(r.Attributes) {
				f(`<tr><td>attributes</td><td><code>%s</code></td></tr>`, code(r.Attributes))
			}
			f(`</table>`)
			f(`</td></tr>`)
		}
		f(`</table></div>`)
	}

	rules("rules", def.Rules)
	if 0 < len(def.Claims) {
		rules("claims", def.Claims)
	}

	return nil
}

// RenderDefinitionPage writes a complete HTML page for the
// Definition.  When includeGraph is true, the page embeds the
// Definition's JSON and a script that can draw it.
func RenderDefinitionPage(def *core.Definition, out io.Writer, cssFiles []string, includeGraph bool) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/defn-html.css"}
	}

	js, err := json.Marshal(def)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, html.EscapeString(def.Name))

	if includeGraph {
		fmt.Fprintf(out, `
  <script src="https://cdnjs.cloudflare.com/ajax/libs/cytoscape/3.2.8/cytoscape.min.js"></script>
  <script src="/static/defn-html.js"></script>
  <script>
  var thisDefinition = %s;
  </script>
`, js)
	}

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, html.EscapeString(def.Name))

	if includeGraph {
		fmt.Fprintf(out, `<div id="graph"></div>`)
	}

	if err = RenderDefinitionHTML(def, out); err != nil {
		return err
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ReadAndRenderDefinitionPage reads a Definition (with inlines) and
// renders its page.
func ReadAndRenderDefinitionPage(filename string, cssFiles []string, out io.Writer, includeGraph bool) error {
	src, err := ReadFileWithInlines(filename)
	if err != nil {
		return err
	}
	def, err := core.ParseDefinition(src)
	if err != nil {
		return err
	}
	return RenderDefinitionPage(def, out, cssFiles, includeGraph)
}
