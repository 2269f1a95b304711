// Package configbinder decodes loosely typed configuration maps into typed structs.
package configbinder

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Bind decodes raw (typically a yaml section held as map[string]interface{}) into target.
// Fields are matched by their `yaml` tag and strings are converted to numbers or bools.
func Bind(raw interface{}, target interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		targetType := reflect.TypeOf(target)
		if targetType.Kind() == reflect.Ptr {
			targetType = targetType.Elem()
		}
		return fmt.Errorf("failed to bind properties to %s: %w", targetType.Name(), err)
	}
	return nil
}

// BindNamed looks up name in configs and decodes it into target.
func BindNamed(configs map[string]interface{}, name string, target interface{}) error {
	raw, ok := configs[name]
	if !ok {
		return fmt.Errorf("no configuration named '%s'", name)
	}
	return Bind(raw, target)
}
