package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/siherrmann/arkg/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordsJSONL = `{"type":"STATE","value":{"bookmarks":{}}}
{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"Mouseion","url":"https://en.wikipedia.org/wiki/Mouseion","abstract":"The Mouseion of Alexandria."}}}

{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"Sankoré Madrasah","url":"https://en.wikipedia.org/wiki/Sankor%C3%A9_Madrasah","summary":"A university in Timbuktu."}}}
{"type":"RECORD","stream":"wikipedia","record":{"abstract_info":{"title":"Library of Alexandria","url":"https://en.wikipedia.org/wiki/Library_of_Alexandria"}}}
`

func TestReadRecords(t *testing.T) {
	t.Run("Reads record messages only", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(recordsJSONL), 0)
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, "Mouseion", records[0].Key)
		assert.Equal(t, "https://en.wikipedia.org/wiki/Mouseion", records[0].URL)
		assert.Equal(t, "The Mouseion of Alexandria.", records[0].Metadata["abstract"])
		assert.NotContains(t, records[0].Metadata, "url")

		assert.Equal(t, "Sankoré_Madrasah", records[1].Key, "Expected unicode to be kept and spaces replaced")
		assert.Equal(t, "Sankoré Madrasah", records[1].Title())
		summary, ok := records[1].Summary()
		assert.True(t, ok)
		assert.Equal(t, "A university in Timbuktu.", summary)

		assert.Equal(t, "Library_of_Alexandria", records[2].Key)
	})

	t.Run("Limit", func(t *testing.T) {
		records, err := ReadRecords(strings.NewReader(recordsJSONL), 2)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "Sankoré_Madrasah", records[1].Key)
	})

	t.Run("Malformed line", func(t *testing.T) {
		_, err := ReadRecords(strings.NewReader(`{"type":"RECORD",`), 0)
		assert.ErrorIs(t, err, helper.ErrValidation)
		assert.Contains(t, err.Error(), "line 1")
	})

	t.Run("Record without url", func(t *testing.T) {
		_, err := ReadRecords(strings.NewReader(`{"type":"RECORD","record":{"abstract_info":{"title":"Mouseion"}}}`), 0)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})

	t.Run("Record without title", func(t *testing.T) {
		_, err := ReadRecords(strings.NewReader(`{"type":"RECORD","record":{"abstract_info":{"url":"https://en.wikipedia.org/wiki/Mouseion"}}}`), 0)
		assert.ErrorIs(t, err, helper.ErrValidation)
	})
}

func TestReadRecordFiles(t *testing.T) {
	directory := t.TempDir()
	first := filepath.Join(directory, "first.jsonl")
	second := filepath.Join(directory, "second.jsonl")
	require.NoError(t, os.WriteFile(first, []byte(recordsJSONL), 0600))
	require.NoError(t, os.WriteFile(second, []byte(`{"type":"RECORD","record":{"abstract_info":{"title":"Bayt al-Hikma","url":"https://en.wikipedia.org/wiki/House_of_Wisdom"}}}`+"\n"), 0600))

	t.Run("Reads all files in order", func(t *testing.T) {
		records, err := ReadRecordFiles([]string{first, second}, 0)
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, "Bayt_al-Hikma", records[3].Key)
	})

	t.Run("Limit spans files", func(t *testing.T) {
		records, err := ReadRecordFiles([]string{first, second}, 4)
		require.NoError(t, err)
		assert.Len(t, records, 4)

		records, err = ReadRecordFiles([]string{first, second}, 3)
		require.NoError(t, err)
		assert.Len(t, records, 3)
		assert.Equal(t, "Library_of_Alexandria", records[2].Key)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := ReadRecordFiles([]string{filepath.Join(directory, "missing.jsonl")}, 0)
		assert.Error(t, err)
	})
}
