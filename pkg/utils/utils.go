package utils

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GetSchemaFromConfig reflects config into a compact JSON schema.
func GetSchemaFromConfig(config any) (string, error) {
	return GetIndentedSchemaFromConfig(config, "")
}

// GetIndentedSchemaFromConfig reflects config into a JSON schema indented with
// indent. An empty indent yields the compact form.
func GetIndentedSchemaFromConfig(config any, indent string) (string, error) {
	schema := jsonschema.Reflect(config)

	var (
		jsonSchemaBytes []byte
		err             error
	)

	if indent == "" {
		jsonSchemaBytes, err = json.Marshal(schema)
	} else {
		jsonSchemaBytes, err = json.MarshalIndent(schema, "", indent)
	}

	if err != nil {
		return "", err
	}

	return string(jsonSchemaBytes), nil
}

// YAMLSchemaHeader is the first line of a YAML file that lets editors
// validate it against the schema at schemaPath.
func YAMLSchemaHeader(schemaPath string) string {
	return "# yaml-language-server: $schema=" + schemaPath + "\n"
}

// FormatBytes renders a size with a binary unit, e.g. 1.5 KiB.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
