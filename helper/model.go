package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// ModelDirectory is where embedding models are downloaded to
var ModelDirectory = "./models"

// PrepareModel downloads the model if it doesn't exist and returns the model path.
// The optional onnxFilePath selects the onnx file inside the model repository.
func PrepareModel(modelName string, onnxFilePath ...string) (string, error) {
	modelPath := filepath.Join(ModelDirectory, strings.ReplaceAll(modelName, "/", "_"))

	// Check if model exists, if not download it
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := os.MkdirAll(ModelDirectory, 0750); err != nil {
			return "", fmt.Errorf("failed to create model directory: %w", err)
		}
		downloadOptions := hugot.NewDownloadOptions()
		if len(onnxFilePath) > 0 && onnxFilePath[0] != "" {
			downloadOptions.OnnxFilePath = onnxFilePath[0]
		}
		downloadedPath, err := hugot.DownloadModel(modelName, ModelDirectory, downloadOptions)
		if err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
		modelPath = downloadedPath
	}

	return modelPath, nil
}
