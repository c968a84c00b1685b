package binder

import "net/http"

// Path binds route parameters using `path` tags. The extractor reads one
// parameter by name, chi.URLParam for example. Only tagged fields are bound.
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return ErrNotApplicable
		}
		return bindTagged(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrInvalidPath)
	}
}
