package store

import (
	"os"
	"path/filepath"

	"github.com/siherrmann/arkg/helper"
)

// Dump writes every quad of the store to path in the serialization of contentType.
// Parent directories are created. Formats without graph names merge all graphs.
func Dump(s *GraphStore, path string, contentType string) error {
	serialization, err := SerializationByContentType(contentType)
	if err != nil {
		return err
	}

	if !serialization.NamedGraphs {
		if graphs := s.Graphs(); len(graphs) > 0 {
			s.logger.Warn("Merging named graphs into the default graph", "serialization", serialization.Name, "graphs", len(graphs))
		}
	}

	err = os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return helper.NewSerializationError("create directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return helper.NewSerializationError("create file", err)
	}

	err = Encode(file, s.Quads(), serialization)
	if err != nil {
		file.Close()
		return helper.NewSerializationError("encode "+serialization.Name, err)
	}
	err = file.Close()
	if err != nil {
		return helper.NewSerializationError("close file", err)
	}

	s.setDescriptor(Descriptor{Path: path, Serialization: serialization})
	s.logger.Info("Dumped graph", "path", path, "serialization", serialization.Name, "quads", s.Len())

	return nil
}

// Load reads a serialization from path into the store.
// Nothing is added if the file is malformed.
func Load(s *GraphStore, path string, contentType string) error {
	serialization, err := SerializationByContentType(contentType)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return helper.NewSerializationError("open file", err)
	}
	defer file.Close()

	quads, err := Decode(file, serialization)
	if err != nil {
		return helper.NewSerializationError("decode "+serialization.Name, err)
	}

	added, err := s.Add(quads...)
	if err != nil {
		return helper.NewSerializationError("add quads", err)
	}

	s.logger.Info("Loaded graph", "path", path, "serialization", serialization.Name, "quads", added)

	return nil
}

// DumpAll writes the store once per serialization into directory.
// The files are named base plus the extension of the serialization.
func DumpAll(s *GraphStore, directory string, base string) ([]string, error) {
	paths := make([]string, 0, len(Serializations))
	for _, serialization := range Serializations {
		path := filepath.Join(directory, serialization.FileName(base))
		if err := Dump(s, path, serialization.ContentType); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
