package pipeline

import (
	"os"
	"path/filepath"

	"github.com/siherrmann/arkg/helper"
	"github.com/siherrmann/arkg/model"
)

// WriteGraphSet writes the anti-recommendation graphs as JSON lines to path.
// Parent directories are created.
func WriteGraphSet(path string, set *model.AntiRecommendationGraphSet) error {
	err := os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return helper.NewError("create directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return helper.NewError("create graph set file", err)
	}

	err = set.WriteJSONLines(file)
	if err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// ReadGraphSet reads a file written by WriteGraphSet
func ReadGraphSet(path string) (*model.AntiRecommendationGraphSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, helper.NewError("open graph set file", err)
	}
	defer file.Close()

	return model.ReadAntiRecommendationGraphSet(file)
}
