package normalizer

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

// decodeDocument extracts the raw text of a .docx body. Each paragraph is
// followed by a blank line, tabs and breaks inside runs are kept, and the
// result always ends with a newline.
func decodeDocument(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("%s not found in archive", docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	text, err := documentText(xml.NewDecoder(rc))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", docxBodyPart, err)
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text, nil
}

func documentText(decoder *xml.Decoder) (string, error) {
	var out, paragraph strings.Builder
	inText, inRun := false, false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return out.String(), nil
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				paragraph.Reset()
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if inRun {
					paragraph.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					paragraph.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				inRun = false
			case "p":
				out.WriteString(paragraph.String())
				out.WriteString("\n\n")
				paragraph.Reset()
			}
		}
	}
}
