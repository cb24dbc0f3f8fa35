package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testData struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"text format", "text", false},
		{"empty format defaults to text", "", false},
		{"unknown format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFormatter(tt.format, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, formatter.Format(testData{Name: "test", Value: 42}))

	assert.Contains(t, buf.String(), `"name": "test"`)
	assert.Contains(t, buf.String(), `"value": 42`)
}

func TestJSONFormatterCompact(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, err)

	require.NoError(t, formatter.Format(testData{Name: "test", Value: 42}))

	assert.Equal(t, `{"name":"test","value":42}`+"\n", buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	formatter, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, formatter.Format(testData{Name: "test", Value: 42}))

	assert.Contains(t, buf.String(), "name: test")
	assert.Contains(t, buf.String(), "value: 42")
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want []string
	}{
		{
			name: "string data",
			data: "hello world",
			want: []string{"hello world"},
		},
		{
			name: "struct falls back to yaml",
			data: testData{Name: "test", Value: 42},
			want: []string{"name: test", "value: 42"},
		},
		{
			name: "detail",
			data: Detail{Title: "Session", Fields: []Field{{Key: "User", Value: "Ada"}, {Key: "Phone"}}},
			want: []string{"Session", "User:", "Ada", "Phone:", "-"},
		},
		{
			name: "table",
			data: Table{Headers: []string{"ID", "TITLE"}, Rows: [][]string{{"1", "Unit 1"}, {"2", "Unit 2"}}},
			want: []string{"ID", "TITLE", "Unit 1", "Unit 2"},
		},
		{
			name: "empty table",
			data: Table{Headers: []string{"ID"}},
			want: []string{"No results."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			formatter, err := NewFormatter("text", &FormatterOptions{Writer: &buf, NoColor: true})
			require.NoError(t, err)

			require.NoError(t, formatter.Format(tt.data))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestTableStructuredOutput(t *testing.T) {
	tbl := Table{Headers: []string{"id", "title"}, Rows: [][]string{{"1", "Unit 1"}}}

	var buf bytes.Buffer
	formatter, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, err)
	require.NoError(t, formatter.Format(tbl))
	assert.JSONEq(t, `[{"id":"1","title":"Unit 1"}]`, buf.String())

	buf.Reset()
	formatter, err = NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)
	require.NoError(t, formatter.Format(tbl))
	assert.Contains(t, buf.String(), "title: Unit 1")
}

func TestDetailKeepsFieldOrder(t *testing.T) {
	d := Detail{Fields: []Field{{Key: "z", Value: "1"}, {Key: "a", Value: "2"}}}

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2"}`, string(out))
	assert.Less(t, strings.Index(string(out), "z"), strings.Index(string(out), "a"))
}
