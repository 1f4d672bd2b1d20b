package pipeline

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
)

const recordMessageType = "RECORD"

// recordMessage is one line of a records file.
// Only messages of type RECORD carry an article, other types are skipped.
type recordMessage struct {
	Type   string `json:"type"`
	Record struct {
		AbstractInfo map[string]interface{} `json:"abstract_info"`
	} `json:"record"`
}

// ReadRecordFiles reads the records of every file in order.
// A limit of zero reads all records, otherwise reading stops after limit records in total.
func ReadRecordFiles(paths []string, limit int) ([]*model.Record, error) {
	var records []*model.Record
	for _, path := range paths {
		remaining := 0
		if limit > 0 {
			remaining = limit - len(records)
			if remaining <= 0 {
				break
			}
		}

		fileRecords, err := readRecordFile(path, remaining)
		if err != nil {
			return nil, err
		}
		records = append(records, fileRecords...)
	}
	return records, nil
}

func readRecordFile(path string, limit int) ([]*model.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, helper.NewError("open records file", err)
	}
	defer file.Close()

	records, err := ReadRecords(file, limit)
	if err != nil {
		return nil, helper.NewError(path, err)
	}
	return records, nil
}

// ReadRecords reads JSON lines of record messages.
// The article title becomes the record key, every field of the article is kept as metadata.
func ReadRecords(r io.Reader, limit int) ([]*model.Record, error) {
	var records []*model.Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		if limit > 0 && len(records) == limit {
			break
		}
		line++

		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}

		var message recordMessage
		if err := json.Unmarshal(b, &message); err != nil {
			return nil, helper.NewValidationError("line %d is not a record message: %v", line, err)
		}
		if message.Type != recordMessageType {
			continue
		}

		record, err := recordFromAbstract(message.Record.AbstractInfo)
		if err != nil {
			return nil, helper.NewError(fmt.Sprintf("record on line %d", line), err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, helper.NewError("scan records", err)
	}

	return records, nil
}

func recordFromAbstract(abstract map[string]interface{}) (*model.Record, error) {
	metadata := model.Metadata(abstract)
	title, _ := metadata.String(model.FieldTitle)
	url, _ := metadata.String("url")

	delete(metadata, "url")
	return model.NewRecord(title, url, metadata)
}
