// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	pkgerrors "pmo-agent/pkg/errors"
)

// extractDocxText 从 docx（OOXML zip）中提取段落文本，空段落丢弃，段落间以换行连接
func extractDocxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", pkgerrors.Validationf("Failed to read DOCX file.")
	}

	var document io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			document, err = f.Open()
			if err != nil {
				return "", pkgerrors.Validationf("Failed to read DOCX file.")
			}
			break
		}
	}
	if document == nil {
		return "", pkgerrors.Validationf("Failed to read DOCX file.")
	}
	defer document.Close()

	paragraphs, err := docxParagraphs(document)
	if err != nil {
		return "", pkgerrors.Validationf("Failed to read DOCX file.")
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs 流式遍历 document.xml，按 w:p 聚合 w:t 文本
func docxParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				if inParagraph {
					var text string
					if err := decoder.DecodeElement(&text, &t); err != nil {
						return nil, err
					}
					current.WriteString(text)
				}
			case "tab":
				if inParagraph {
					current.WriteString("\t")
				}
			case "br":
				if inParagraph {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" && inParagraph {
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				inParagraph = false
			}
		}
	}
	return paragraphs, nil
}
