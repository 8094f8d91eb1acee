package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV_EmbeddedComma(t *testing.T) {
	input := "company,status,notes\n\"Acme, Inc.\",\"Booked\",\"5 stars\"\n"
	rows := ParseCSV(input)
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{
		"company": "Acme, Inc.",
		"status":  "Booked",
		"notes":   "5 stars",
	}, rows[0])
}

func TestParseCSV_HeadersLowercasedAndTrimmed(t *testing.T) {
	input := " Company Name , \"Phone\" ,SNO\r\nAcme,555,1\r\n"
	headers, rows := ParseCSVTable(input)
	assert.Equal(t, []string{"company name", "phone", "sno"}, headers)
	require.Len(t, rows, 1)
	assert.Equal(t, "Acme", rows[0]["company name"])
	assert.Equal(t, "555", rows[0]["phone"])
	assert.Equal(t, "1", rows[0]["sno"])
}

func TestParseCSV_SkipsBlankLines(t *testing.T) {
	input := "\n\na,b\n\n1,2\n   \n3,4\n"
	rows := ParseCSV(input)
	require.Len(t, rows, 2)
	assert.Equal(t, "1", rows[0]["a"])
	assert.Equal(t, "4", rows[1]["b"])
}

func TestParseCSV_ShortRowPadded(t *testing.T) {
	rows := ParseCSV("a,b,c\n1\n")
	require.Len(t, rows, 1)
	assert.Equal(t, map[string]string{"a": "1", "b": "", "c": ""}, rows[0])
}

func TestParseCSV_ExtraValuesIgnored(t *testing.T) {
	rows := ParseCSV("a,b\n1,2,3\n")
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 2)
	assert.Equal(t, "2", rows[0]["b"])
}

func TestParseCSV_TrimsValues(t *testing.T) {
	rows := ParseCSV("a,b\n  x  ,  \" y \"  \n")
	require.Len(t, rows, 1)
	assert.Equal(t, "x", rows[0]["a"])
	assert.Equal(t, "y", rows[0]["b"])
}

func TestParseCSV_UnterminatedQuoteSwallowsRest(t *testing.T) {
	rows := ParseCSV("a,b\n\"open,still open\n")
	require.Len(t, rows, 1)
	assert.Equal(t, "open,still open", rows[0]["a"])
	assert.Equal(t, "", rows[0]["b"])
}

func TestParseCSV_Empty(t *testing.T) {
	assert.Nil(t, ParseCSV(""))
	assert.Nil(t, ParseCSV("\n\r\n"))
	assert.Nil(t, ParseCSV("a,b\n"))
}
