package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// writeStructured encodes v as json or yaml. It returns false for other
// formats so the caller can render text.
func writeStructured(w io.Writer, format string, v any) (bool, error) {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func checkFormat(format string, text ...string) error {
	switch strings.ToLower(format) {
	case "json", "yaml", "yml":
		return nil
	}
	for _, t := range text {
		if strings.EqualFold(format, t) {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s, json or yaml)", format, strings.Join(text, ", "))
}
