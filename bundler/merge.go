package bundler

import (
	"fmt"
	"reflect"

	"dario.cat/mergo"
)

// MergeConfig merges patch into dst. Maps are merged key by key, slices are
// appended and set scalars override. An explicitly set optional value such as
// an AssetsInlineLimit of 0 overrides the destination.
func MergeConfig(dst *UserConfig, patch UserConfig) error {
	err := mergo.Merge(dst, patch,
		mergo.WithOverride,
		mergo.WithAppendSlice,
		mergo.WithTransformers(optionalIntTransformer{}),
	)
	if err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

type optionalIntTransformer struct{}

func (optionalIntTransformer) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t != reflect.TypeOf((*int)(nil)) {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if dst.CanSet() && !src.IsNil() {
			v := src.Elem().Int()
			n := int(v)
			dst.Set(reflect.ValueOf(&n))
		}
		return nil
	}
}
