package binder

import (
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"
)

// DefaultMaxMemory is the multipart memory budget; larger parts spill to
// temporary files.
const DefaultMaxMemory = 10 << 20

// Form binds urlencoded or multipart bodies. JSON requests are left to JSON.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		mediaType, err := mediaTypeOf(r)
		if err != nil {
			return err
		}

		var files map[string][]*multipart.FileHeader
		switch mediaType {
		case "application/x-www-form-urlencoded":
			if err := r.ParseForm(); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
		case "multipart/form-data":
			if err := r.ParseMultipartForm(DefaultMaxMemory); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidForm, err)
			}
			files = r.MultipartForm.File
		case "application/json":
			return ErrBinderNotApplicable
		default:
			return fmt.Errorf("%w: got %s, expected a form", ErrUnsupportedMediaType, mediaType)
		}

		if err := bindToStruct(v, "form", r.Form, ErrInvalidForm); err != nil {
			return err
		}
		return bindFiles(v, files)
	}
}

var fileHeaderType = reflect.TypeOf((*multipart.FileHeader)(nil))

func bindFiles(v any, files map[string][]*multipart.FileHeader) error {
	if len(files) == 0 {
		return nil
	}
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()
	for i := range rv.NumField() {
		field, sf := rv.Field(i), rt.Field(i)
		name := sf.Tag.Get("file")
		if name == "" || name == "-" || !field.CanSet() {
			continue
		}
		headers := files[name]
		if len(headers) == 0 {
			continue
		}
		for _, fh := range headers {
			fh.Filename = sanitizeFilename(fh.Filename)
		}

		switch {
		case sf.Type == fileHeaderType:
			field.Set(reflect.ValueOf(headers[0]))
		case sf.Type.Kind() == reflect.Slice && sf.Type.Elem() == fileHeaderType:
			field.Set(reflect.ValueOf(headers))
		default:
			return fmt.Errorf("%w: field %s: file fields must be *multipart.FileHeader", ErrInvalidForm, sf.Name)
		}
	}
	return nil
}

// sanitizeFilename strips directories and NUL bytes from client file names.
func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "\x00", "")
	if name == "." || name == ".." || name == "/" || name == "" {
		return "unnamed"
	}
	return name
}

func mediaTypeOf(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return "", ErrMissingContentType
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
	}
	return mediaType, nil
}

func isFormMedia(mediaType string) bool {
	return mediaType == "multipart/form-data" || mediaType == "application/x-www-form-urlencoded"
}
