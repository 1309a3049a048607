package render

import "fmt"

// RenderMap applies templates to each value in a map.
func RenderMap(values map[string]string, data interface{}, engine *Engine) (map[string]string, error) {
	if len(values) == 0 {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(values))
	for key, val := range values {
		rendered, err := engine.RenderString(val, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[key] = rendered
	}
	return out, nil
}
