// Package docxtpl fills literal {{TOKEN}} placeholders in a DOCX template.
//
// A DOCX file is a zip of XML parts. Tokens may appear in body paragraphs,
// table cells, and header/footer paragraphs; all of these are made of the
// same <w:p> paragraph element, so one paragraph-level sweep applied to the
// document part and every header/footer part covers them uniformly. A token
// the authoring tool split across multiple formatting runs is still matched,
// because replacement happens on the concatenated paragraph text and the
// result is redistributed into the paragraph's first run.
package docxtpl

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Filler is the stateless template filler.
type Filler struct{}

// Fill loads the template, replaces every occurrence of every mapped token,
// and writes the filled document to outPath. Tokens with no mapping entry
// are left untouched; an empty mapping leaves every paragraph's text
// identical to the source.
func (Filler) Fill(templatePath, outPath string, mapping map[string]string) error {
	r, err := zip.OpenReader(templatePath)
	if err != nil {
		return fmt.Errorf("opening template: %w", err)
	}
	defer r.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output document: %w", err)
	}
	defer out.Close()

	w := zip.NewWriter(out)
	for _, f := range r.File {
		if !isTextPart(f.Name) {
			if err := w.Copy(f); err != nil {
				return fmt.Errorf("copying part %s: %w", f.Name, err)
			}
			continue
		}

		part, err := readPart(f)
		if err != nil {
			return err
		}

		dst, err := w.Create(f.Name)
		if err != nil {
			return fmt.Errorf("writing part %s: %w", f.Name, err)
		}
		if _, err := io.WriteString(dst, replaceInPart(part, mapping)); err != nil {
			return fmt.Errorf("writing part %s: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing output document: %w", err)
	}
	return nil
}

// isTextPart reports whether a zip entry is a part that can hold paragraph
// text: the document body or a header/footer.
func isTextPart(name string) bool {
	if name == "word/document.xml" {
		return true
	}
	return (strings.HasPrefix(name, "word/header") || strings.HasPrefix(name, "word/footer")) &&
		strings.HasSuffix(name, ".xml")
}

func readPart(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening part %s: %w", f.Name, err)
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading part %s: %w", f.Name, err)
	}
	return string(b), nil
}

// replaceInPart applies the mapping to every paragraph in one XML part.
func replaceInPart(part string, mapping map[string]string) string {
	var out strings.Builder
	pos := 0
	for pos < len(part) {
		start, tagEnd := findParagraphStart(part, pos)
		if start < 0 {
			out.WriteString(part[pos:])
			break
		}
		end := findParagraphEnd(part, tagEnd)
		if end < 0 {
			out.WriteString(part[pos:])
			break
		}
		out.WriteString(part[pos:start])
		out.WriteString(replaceInParagraph(part[start:end], mapping))
		pos = end
	}
	return out.String()
}

// findParagraphStart locates the next <w:p> opening tag at or after pos.
// Returns the tag's start offset and the offset just past its '>'.
func findParagraphStart(part string, pos int) (int, int) {
	for {
		i := strings.Index(part[pos:], "<w:p")
		if i < 0 {
			return -1, -1
		}
		i += pos
		rest := part[i+4:]
		// Skip <w:pPr>, <w:proofErr> and every other tag that merely
		// starts with "w:p".
		if len(rest) > 0 && (rest[0] == '>' || rest[0] == ' ') {
			gt := strings.IndexByte(rest, '>')
			if gt < 0 {
				return -1, -1
			}
			return i, i + 4 + gt + 1
		}
		pos = i + 4
	}
}

// findParagraphEnd locates the offset just past the </w:p> closing the
// paragraph whose opening tag ends at pos. Nested paragraphs (text boxes)
// are balanced.
func findParagraphEnd(part string, pos int) int {
	depth := 1
	for pos < len(part) {
		i := strings.Index(part[pos:], "</w:p>")
		if i < 0 {
			return -1
		}
		i += pos
		if inner, _ := findParagraphStart(part, pos); inner >= 0 && inner < i {
			depth++
			pos = inner + 4
			continue
		}
		depth--
		if depth == 0 {
			return i + len("</w:p>")
		}
		pos = i + len("</w:p>")
	}
	return -1
}

var runTextRe = regexp.MustCompile(`<w:t(\s[^>]*)?>([^<]*)</w:t>`)

var (
	xmlEscaper   = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	xmlUnescaper = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
)

// replaceInParagraph rebuilds one <w:p> element with tokens substituted. The
// paragraph's visible text is the concatenation of its <w:t> runs; mapping is
// applied to that whole text, and when anything changed the result is placed
// in the first run while the remaining runs are emptied. Per-run character
// formatting on the replaced stretch is collapsed onto the first run.
func replaceInParagraph(para string, mapping map[string]string) string {
	matches := runTextRe.FindAllStringSubmatchIndex(para, -1)
	if len(matches) == 0 {
		return para
	}

	var text strings.Builder
	for _, m := range matches {
		text.WriteString(xmlUnescaper.Replace(para[m[4]:m[5]]))
	}

	replaced := text.String()
	for token, value := range mapping {
		replaced = strings.ReplaceAll(replaced, token, value)
	}
	if replaced == text.String() {
		return para
	}

	var out strings.Builder
	pos := 0
	for i, m := range matches {
		out.WriteString(para[pos:m[0]])
		if i == 0 {
			out.WriteString(`<w:t xml:space="preserve">`)
			out.WriteString(xmlEscaper.Replace(replaced))
			out.WriteString(`</w:t>`)
		} else {
			out.WriteString(`<w:t></w:t>`)
		}
		pos = m[1]
	}
	out.WriteString(para[pos:])
	return out.String()
}
