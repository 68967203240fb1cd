package binder

import "net/http"

// Path binds router path parameters tagged `path:"name"` through extractor,
// usually chi.URLParam.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		values := make(map[string][]string)
		err := eachTagged(v, "path", ErrInvalidPath, func(name string) {
			if val := extractor(r, name); val != "" {
				values[name] = []string{val}
			}
		})
		if err != nil {
			return err
		}
		return bindToStruct(v, "path", values, ErrInvalidPath)
	}
}
