package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iancoleman/orderedmap"
	"github.com/jedib0t/go-pretty/v6/table"
)

/**
 * Convert a struct to an ordered map keeping field order
 * @param {interface{}} v - Struct with json tags
 * @returns {*orderedmap.OrderedMap, error} Keys follow the json field order
 */
func StructToOrderedMap(v interface{}) (*orderedmap.OrderedMap, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	m := orderedmap.New()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

/**
 * Render records as a table
 * @param {[]*orderedmap.OrderedMap} dataList - Rows, the keys of the first row form the header
 */
func PrintFormat(dataList []*orderedmap.OrderedMap) {
	fmt.Print(RenderTable(dataList))
}

func RenderTable(dataList []*orderedmap.OrderedMap) string {
	if len(dataList) == 0 {
		return ""
	}
	keys := dataList[0].Keys()
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(keys))
	for i, k := range keys {
		header[i] = k
	}
	tw.AppendHeader(header)

	for _, rec := range dataList {
		row := make(table.Row, len(keys))
		for i, k := range keys {
			if v, ok := rec.Get(k); ok {
				row[i] = v
			} else {
				row[i] = ""
			}
		}
		tw.AppendRow(row)
	}
	return tw.Render() + "\n"
}

// PrintJSON 以缩进JSON打印
func PrintJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
