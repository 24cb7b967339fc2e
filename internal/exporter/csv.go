package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// writeCSV 写出表头 + 数据行的 CSV 字节
func writeCSV(columns []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("写入 CSV 表头失败: %w", err)
	}
	for i, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("写入 CSV 第 %d 行失败: %w", i+2, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
