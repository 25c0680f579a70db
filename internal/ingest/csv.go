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
	"encoding/csv"
	"io"
	"strings"
	"unicode/utf8"

	pkgerrors "pmo-agent/pkg/errors"
)

// parseCSV 解析 CSV，首行视为表头。存入内存的文本是重新渲染的
// 表头 + 前 previewRows 行数据，预览结构给前端渲染表格用
func parseCSV(data []byte, previewRows int) (string, *CSVPreview, error) {
	if !utf8.Valid(data) {
		return "", nil, pkgerrors.Validationf("Unable to decode CSV as UTF-8.")
	}

	reader := csv.NewReader(strings.NewReader(string(data)))

	header, err := reader.Read()
	if err != nil {
		return "", nil, pkgerrors.Validationf("Failed to parse CSV file.")
	}

	rows := make([][]string, 0, previewRows)
	for len(rows) < previewRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", nil, pkgerrors.Validationf("Failed to parse CSV file.")
		}
		rows = append(rows, record)
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	if err := writer.Write(header); err != nil {
		return "", nil, pkgerrors.Wrap(err, "渲染 CSV 失败")
	}
	if err := writer.WriteAll(rows); err != nil {
		return "", nil, pkgerrors.Wrap(err, "渲染 CSV 失败")
	}

	preview := &CSVPreview{Columns: header, Rows: rows}
	return buf.String(), preview, nil
}
