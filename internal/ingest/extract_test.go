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
	"strings"
	"testing"

	pkgerrors "pmo-agent/pkg/errors"
)

func TestExtract_Validation(t *testing.T) {
	e := NewExtractor(0, 0, nil)

	cases := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"empty filename", "", []byte("x")},
		{"unsupported extension", "report.exe", []byte("x")},
		{"no extension", "README", []byte("x")},
		{"empty file", "notes.txt", nil},
		{"invalid utf8", "notes.txt", []byte{0xff, 0xfe, 0x00}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.Extract(tc.filename, tc.data); !pkgerrors.IsValidation(err) {
				t.Errorf("Extract(%q) error = %v, want validation error", tc.filename, err)
			}
		})
	}
}

func TestExtract_FileTooLarge(t *testing.T) {
	e := NewExtractor(16, 0, nil)
	if _, err := e.Extract("big.txt", bytes.Repeat([]byte("a"), 17)); !pkgerrors.IsValidation(err) {
		t.Errorf("Extract error = %v, want validation error", err)
	}
}

func TestExtract_PlainText(t *testing.T) {
	e := NewExtractor(0, 0, nil)
	result, err := e.Extract("项目计划.md", []byte("# Plan\n里程碑一"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Label != "doc:项目计划.md" {
		t.Errorf("Label = %q", result.Label)
	}
	if result.Text != "# Plan\n里程碑一" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.CSVPreview != nil {
		t.Error("CSVPreview should be nil for markdown")
	}
}

func TestExtract_CSV(t *testing.T) {
	e := NewExtractor(0, 2, nil)
	data := []byte("id,name\n1,kickoff\n2,design\n3,build\n")

	result, err := e.Extract("plan.csv", data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// 预览与入库文本都截到前 2 行数据
	if result.Text != "id,name\n1,kickoff\n2,design\n" {
		t.Errorf("Text = %q", result.Text)
	}
	if result.CSVPreview == nil {
		t.Fatal("CSVPreview missing")
	}
	if got := result.CSVPreview.Columns; len(got) != 2 || got[0] != "id" || got[1] != "name" {
		t.Errorf("Columns = %v", got)
	}
	if len(result.CSVPreview.Rows) != 2 {
		t.Fatalf("Rows = %v", result.CSVPreview.Rows)
	}
	if result.CSVPreview.Rows[1][1] != "design" {
		t.Errorf("Rows[1] = %v", result.CSVPreview.Rows[1])
	}
}

func TestExtract_CSVMalformed(t *testing.T) {
	e := NewExtractor(0, 0, nil)
	// 第二行字段数和表头不一致
	if _, err := e.Extract("plan.csv", []byte("id,name\n1,kickoff,extra\n")); !pkgerrors.IsValidation(err) {
		t.Errorf("Extract error = %v, want validation error", err)
	}
}

func TestExtract_Docx(t *testing.T) {
	e := NewExtractor(0, 0, nil)

	result, err := e.Extract("plan.docx", buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Milestone one</w:t></w:r></w:p>
    <w:p><w:r><w:t>  </w:t></w:r></w:p>
    <w:p><w:r><w:t>里程碑</w:t></w:r><w:r><w:t>二</w:t></w:r></w:p>
  </w:body>
</w:document>`))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if result.Text != "Milestone one\n里程碑二" {
		t.Errorf("Text = %q", result.Text)
	}
}

func TestExtract_DocxCorrupt(t *testing.T) {
	e := NewExtractor(0, 0, nil)
	if _, err := e.Extract("plan.docx", []byte("not a zip archive")); !pkgerrors.IsValidation(err) {
		t.Errorf("Extract error = %v, want validation error", err)
	}
}

// buildDocx 构造仅含 word/document.xml 的最小 docx
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestDocxParagraphs_TabsAndBreaks(t *testing.T) {
	r := strings.NewReader(`<w:document xmlns:w="x">
<w:p><w:r><w:t>col A</w:t></w:r><w:tab/><w:r><w:t>col B</w:t></w:r></w:p>
</w:document>`)
	paragraphs, err := docxParagraphs(r)
	if err != nil {
		t.Fatalf("docxParagraphs: %v", err)
	}
	if len(paragraphs) != 1 || paragraphs[0] != "col A\tcol B" {
		t.Errorf("paragraphs = %q", paragraphs)
	}
}
