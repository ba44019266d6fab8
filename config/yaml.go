package config

import (
	"reflect"
	"strings"

	"github.com/tessellated-io/haqq-delegator/log"
	"gopkg.in/yaml.v2"
)

func WriteYamlWithComments(config interface{}, header string, filename string, logger *log.Logger) error {
	fileData, err := addCommentsToYaml(config, header)
	if err != nil {
		return err
	}

	return SafeWrite(filename, fileData, logger)
}

func addCommentsToYaml(config interface{}, header string) ([]byte, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, err
	}

	var result strings.Builder

	// Add the custom header at the beginning
	if header != "" {
		result.WriteString("# " + header + "\n")
	}

	// Handle both struct and pointer to struct
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	yamlStr := string(data)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)

		// Extract YAML key and comment from struct field
		yamlKey, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		comment := field.Tag.Get("comment")
		if yamlKey == "" || yamlKey == "-" {
			continue
		}

		// Find the top level line that corresponds to this field
		lineStart := topLevelKeyIndex(yamlStr, yamlKey)
		if lineStart >= 0 {
			lineEnd := strings.Index(yamlStr[lineStart:], "\n")
			if lineEnd < 0 {
				lineEnd = len(yamlStr)
			} else {
				lineEnd += lineStart
			}

			result.WriteString(yamlStr[:lineStart])

			// Write the comment with a preceding blank line
			if comment != "" {
				result.WriteString("\n# " + comment + "\n")
			}

			result.WriteString(yamlStr[lineStart:lineEnd])
			yamlStr = yamlStr[lineEnd:]
		}
	}

	result.WriteString(yamlStr)
	return []byte(result.String()), nil
}

// topLevelKeyIndex finds an unindented "key:" at the start of a line.
func topLevelKeyIndex(yamlStr, key string) int {
	needle := key + ":"
	if strings.HasPrefix(yamlStr, needle) {
		return 0
	}

	index := strings.Index(yamlStr, "\n"+needle)
	if index < 0 {
		return -1
	}
	return index + 1
}
