package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"sort"
)

type filePart struct {
	field    string
	filename string
	content  []byte
	path     string
}

// Form is a multipart/form-data body. Text fields are written in name order
// so that encoded bodies are reproducible.
type Form struct {
	fields map[string]string
	files  []filePart
}

// NewForm returns an empty multipart body.
func NewForm() *Form {
	return &Form{fields: make(map[string]string)}
}

// Set adds or replaces a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields[name] = value
	return f
}

// AddFile attaches the file at path under field. The file is read when the
// request is sent.
func (f *Form) AddFile(field, path string) *Form {
	f.files = append(f.files, filePart{field: field, filename: filepath.Base(path), path: path})
	return f
}

// AddFileBytes attaches in-memory content under field.
func (f *Form) AddFileBytes(field, filename string, content []byte) *Form {
	f.files = append(f.files, filePart{field: field, filename: filename, content: content})
	return f
}

// Field returns the value of a text field.
func (f *Form) Field(name string) (string, bool) {
	v, ok := f.fields[name]
	return v, ok
}

// HasFile reports whether a file part was attached under field.
func (f *Form) HasFile(field string) bool {
	for _, p := range f.files {
		if p.field == field {
			return true
		}
	}
	return false
}

func (f *Form) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(f.fields))
	for name := range f.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, f.fields[name]); err != nil {
			return nil, "", err
		}
	}

	for _, p := range f.files {
		part, err := w.CreateFormFile(p.field, p.filename)
		if err != nil {
			return nil, "", err
		}
		if p.path != "" {
			file, err := os.Open(p.path)
			if err != nil {
				return nil, "", fmt.Errorf("failed to open %s: %w", p.field, err)
			}
			_, err = io.Copy(part, file)
			file.Close()
			if err != nil {
				return nil, "", err
			}
			continue
		}
		if _, err := part.Write(p.content); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
