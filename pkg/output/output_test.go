package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/icpep-se/certmailer/pkg/batch"
)

func sampleSummary() *batch.Summary {
	return &batch.Summary{
		Results: []batch.Result{
			{Email: "jane.doe@example.com", Name: "Jane Doe", Sent: true, Attached: true},
			{Email: "bob@example.com", Sent: false, Error: "connection reset"},
			{Email: "carol@example.com", Name: "Carol", Skipped: true},
		},
		Sent:    1,
		Failed:  1,
		Skipped: 1,
	}
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: "json", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "xml", wantErr: true},
		{in: "JSON", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestWriteSummaryTable(t *testing.T) {
	var buf bytes.Buffer
	WriteSummaryTable(&buf, sampleSummary())

	out := buf.String()
	assert.Contains(t, out, "EMAIL")
	assert.Contains(t, out, "jane.doe@example.com")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "connection reset")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "1 sent, 1 failed, 1 skipped")
}

func TestWriteSummaryJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, FormatJSON, sampleSummary()))

	var got batch.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Sent)
	assert.Len(t, got.Results, 3)
	assert.Equal(t, "connection reset", got.Results[1].Error)
}

func TestWriteSummaryYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, FormatYAML, sampleSummary()))

	var got batch.Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Failed)
	assert.Len(t, got.Results, 3)
}

func TestWriteSummaryUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummary(&buf, Format("csv"), sampleSummary())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "csv"))
}
